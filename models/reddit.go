package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	KindComment = "t1"
	KindPost    = "t3"

	AutoModerator = "AutoModerator"
)

type RedditListing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []Envelope `json:"children"`
	} `json:"data"`
}

// Envelope is the {kind, data} wrapper Reddit puts around posts.
type Envelope struct {
	Kind string     `json:"kind"`
	Data RedditPost `json:"data"`
}

type RedditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
}

func (p RedditPost) URL() string {
	return "https://reddit.com" + p.Permalink
}

func (p RedditPost) Created() time.Time {
	return time.Unix(int64(p.CreatedUTC), 0).UTC()
}

type RedditCommentListing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []struct {
			Kind string        `json:"kind"`
			Data RedditComment `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type RedditComment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
}

// Collection is everything one run gathered: posts in the order the search
// returned them and the top comment of the highest ranked ones.
type Collection struct {
	RunID       uuid.UUID
	Subreddit   string
	Term        string
	CollectedAt time.Time
	Posts       []Envelope
	TopComments map[string]RedditComment
}

func (c *Collection) TopComment(postID string) (RedditComment, bool) {
	if c == nil || c.TopComments == nil {
		return RedditComment{}, false
	}
	comment, ok := c.TopComments[postID]
	return comment, ok
}

// DecodeEntry reads one artifact entry. Entries carrying a "kind" key are
// treated as envelopes, anything else as a bare post object. An envelope
// with an empty kind is a post.
func DecodeEntry(raw json.RawMessage) (post RedditPost, kind string, err error) {
	var head struct {
		Kind *string         `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return RedditPost{}, "", err
	}

	if head.Kind != nil {
		if len(head.Data) > 0 && string(head.Data) != "null" {
			if err := json.Unmarshal(head.Data, &post); err != nil {
				return RedditPost{}, "", err
			}
		}
		if *head.Kind == "" {
			return post, KindPost, nil
		}
		return post, *head.Kind, nil
	}

	if err := json.Unmarshal(raw, &post); err != nil {
		return RedditPost{}, "", err
	}
	return post, KindPost, nil
}
