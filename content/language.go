package content

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Unknown is reported when the detector cannot decide.
const Unknown = "Unknown"

var detectable = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
}

type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector() *LanguageDetector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(detectable...).
		WithLowAccuracyMode().
		Build()
	return &LanguageDetector{detector: detector}
}

// Detect names the language of title and body combined.
func (d *LanguageDetector) Detect(title, body string) string {
	text := strings.TrimSpace(title + " " + body)
	if text == "" {
		return Unknown
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return Unknown
	}
	return language.String()
}
