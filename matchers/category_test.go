package matchers

import (
	"testing"

	"github.com/kova98/insightgrep/enums"
	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  enums.Category
	}{
		{"transition", "Advice for a college senior", "", enums.CategoryTransition},
		{"reality", "My job is so boring", "", enums.CategoryReality},
		{"strategy", "What salary should I ask my boss for?", "", enums.CategoryStrategy},
		{"workplace", "Dealing with office politics", "", enums.CategoryWorkplace},
		{"fallback", "Thoughts on pump selection for a water plant?", "", enums.CategoryGeneral},
		{"empty", "", "", enums.CategoryGeneral},
		{"keyword in body", "Quick question", "I want a promotion this year", enums.CategoryStrategy},
		{"case insensitive", "SALARY TALK", "", enums.CategoryStrategy},
		{"keyword inside a word", "Upgrading my workstation", "", enums.CategoryTransition},
		{"multi word keyword", "A day in the life of a controls engineer", "", enums.CategoryReality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.title, tt.body))
		})
	}
}

func TestCategorize_DeclaredOrderBreaksTies(t *testing.T) {
	// salary (chapter 3) and boss (chapter 4): chapter 3 is declared first.
	assert.Equal(t, enums.CategoryStrategy, Categorize("Salary talk", "my boss keeps delaying it"))

	assert.Equal(t, enums.CategoryStrategy, Categorize("Should I get an MBA?", "The salary bump seems worth it."))
	// university belongs to chapter 1, which precedes chapter 3.
	assert.Equal(t, enums.CategoryTransition,
		Categorize("Should I get an MBA?", "The salary bump seems worth it and my university offers one."))
}

func TestCategorize_AlwaysReturnsKnownLabel(t *testing.T) {
	inputs := []string{"", "boss", "salary", "student", "boring", "random words", "ünïcödé ✓", "MBA"}
	for _, title := range inputs {
		for _, body := range inputs {
			assert.True(t, Categorize(title, body).Valid(), "title=%q body=%q", title, body)
		}
	}
}

func TestCategoryRules_FollowDeclaredChapterOrder(t *testing.T) {
	assert.Len(t, categoryRules, len(enums.Categories)-1)
	for i, rule := range categoryRules {
		assert.Equal(t, enums.Categories[i], rule.category)
		assert.NotEmpty(t, rule.keywords)
	}
}
