// Package content normalizes free text pulled from Reddit.
package content

import (
	"regexp"
	"strings"
)

var htmlTag = regexp.MustCompile(`<[^>]+>`)

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// Clean strips HTML tags, unescapes the handful of entities Reddit leaves in
// self text and trims surrounding whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = htmlTag.ReplaceAllString(text, "")
	text = entities.Replace(text)
	return strings.TrimSpace(text)
}
