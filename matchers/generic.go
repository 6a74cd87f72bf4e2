package matchers

import "strings"

func MatchesPartially(text, keyword string) bool {
	return strings.Contains(text, keyword)
}

// MatchesAny reports whether any keyword occurs anywhere in text, including
// inside longer words.
func MatchesAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if MatchesPartially(text, keyword) {
			return true
		}
	}
	return false
}
