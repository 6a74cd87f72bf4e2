package matchers

import (
	"strings"

	"github.com/kova98/insightgrep/enums"
)

type categoryRule struct {
	category enums.Category
	keywords []string
}

// categoryRules is evaluated top to bottom and the first hit wins, so the
// order here decides posts that match several chapters.
var categoryRules = []categoryRule{
	{enums.CategoryTransition, []string{
		"student", "grad", "degree", "knowledge", "first job", "early career",
		"imposter", "stagnat", "learn", "university", "college",
	}},
	{enums.CategoryReality, []string{
		"reality", "boring", "bored", "hate", "depress", "autocad", "paperwork",
		"square pipe", "day in the life", "expect", "bad",
	}},
	{enums.CategoryStrategy, []string{
		"promotion", "mba", "salary", "raise", "consulting", "career path",
		"pigeonhole", "industry", "future", "manager",
	}},
	{enums.CategoryWorkplace, []string{
		"boss", "holiday", "politics", "ethics", "pinto", "communication",
		"skill", "soft skill", "management", "respect", "fired",
	}},
}

// Categorize assigns exactly one chapter to a post from its title and
// cleaned body.
func Categorize(title, body string) enums.Category {
	text := strings.ToLower(title + " " + body)
	for _, rule := range categoryRules {
		if MatchesAny(text, rule.keywords) {
			return rule.category
		}
	}
	return enums.CategoryGeneral
}
