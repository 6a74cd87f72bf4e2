package matchers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeep_AutoModeratorAlwaysDropped(t *testing.T) {
	keep, reason := Keep("AutoModerator", "Career Monday (January 01, 2024): Have a question about your job?", "Lots of text here")

	assert.False(t, keep)
	assert.Equal(t, DropAutoModerator, reason)
}

func TestKeep_EmptyBodyShortTitleDropped(t *testing.T) {
	keep, reason := Keep("someone", "Short one", "")

	assert.False(t, keep)
	assert.Equal(t, DropEmpty, reason)
}

func TestKeep_EmptyBodyTenCharTitleKept(t *testing.T) {
	keep, reason := Keep("someone", "Ten chars!", "")

	assert.True(t, keep)
	assert.Empty(t, reason)
}

func TestKeep_ShortTitleWithBodyKept(t *testing.T) {
	keep, _ := Keep("someone", "Help", "I need advice on switching fields.")

	assert.True(t, keep)
}

func TestKeep_TitleLengthCountsRunes(t *testing.T) {
	// nine runes, more than nine bytes
	keep, _ := Keep("someone", "ééééééééé", "")
	assert.False(t, keep)
}
