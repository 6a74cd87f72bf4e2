package matchers

import (
	"unicode/utf8"

	"github.com/kova98/insightgrep/models"
)

const (
	DropAutoModerator = "automoderator"
	DropEmpty         = "empty"

	minTitleRunes = 10
)

// Keep decides whether a post is worth a place in the book. Bot threads are
// always dropped, and so are posts with no body and a very short title.
func Keep(author, title, cleanBody string) (bool, string) {
	if author == models.AutoModerator {
		return false, DropAutoModerator
	}
	if cleanBody == "" && utf8.RuneCountInString(title) < minTitleRunes {
		return false, DropEmpty
	}
	return true, ""
}
