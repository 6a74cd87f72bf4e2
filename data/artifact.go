package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kova98/insightgrep/models"
)

// WriteArtifact persists posts as an indented JSON array of envelopes. It is
// the only hand-off between collection and the PDF step.
func WriteArtifact(path string, posts []models.Envelope) error {
	if posts == nil {
		posts = []models.Envelope{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(posts); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

// ReadArtifact loads posts written by WriteArtifact or any array of bare post
// objects. Enveloped entries that are not posts are skipped and counted.
func ReadArtifact(path string) ([]models.RedditPost, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read artifact: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0, fmt.Errorf("decode artifact %s: %w", path, err)
	}

	posts := make([]models.RedditPost, 0, len(entries))
	skipped := 0
	for i, entry := range entries {
		post, kind, err := models.DecodeEntry(entry)
		if err != nil {
			return nil, 0, fmt.Errorf("decode artifact entry %d: %w", i, err)
		}
		if kind != models.KindPost {
			skipped++
			continue
		}
		posts = append(posts, post)
	}
	return posts, skipped, nil
}
