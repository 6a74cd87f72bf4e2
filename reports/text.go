package reports

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/kova98/insightgrep/content"
	"github.com/kova98/insightgrep/models"
	"github.com/kova98/insightgrep/sources"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// MaxReportPosts caps the insights in the text report only.
	MaxReportPosts = 30
	// PreviewLines is how many body lines each insight quotes.
	PreviewLines = 5
	// MoreContentChars is the body length past which the report points to
	// the thread for the rest.
	MoreContentChars = 300

	ruleWidth = 100
)

//go:embed templates/report.txt
var reportTemplates embed.FS

var printer = message.NewPrinter(language.English)

var reportTemplate = template.Must(template.New("report.txt").Funcs(template.FuncMap{
	"rule": func(s string) string { return strings.Repeat(s, ruleWidth) },
	"thousands": func(n int) string {
		return printer.Sprintf("%d", n)
	},
}).ParseFS(reportTemplates, "templates/report.txt"))

type TextRenderer struct {
	detector *content.LanguageDetector
	now      func() time.Time
}

// NewTextRenderer returns a renderer that adds a language line to every
// insight when detector is non-nil.
func NewTextRenderer(detector *content.LanguageDetector) *TextRenderer {
	return &TextRenderer{
		detector: detector,
		now:      time.Now,
	}
}

type reportView struct {
	Subreddit string
	Total     int
	Generated string
	Insights  []insightView
}

type insightView struct {
	Rank        int
	Title       string
	Author      string
	Score       int
	Comments    int
	Date        string
	URL         string
	Language    string
	Preview     string
	MoreContent bool
	Comment     *models.RedditComment
}

func (r *TextRenderer) Render(w io.Writer, c *models.Collection) error {
	view := reportView{
		Subreddit: c.Subreddit,
		Total:     len(c.Posts),
		Generated: r.now().Format("2006-01-02 15:04:05"),
	}

	for i, envelope := range c.Posts {
		if i >= MaxReportPosts {
			break
		}
		view.Insights = append(view.Insights, r.insight(i+1, envelope.Data, c))
	}

	if err := reportTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

// WriteFile renders the report into path, creating its directory.
func (r *TextRenderer) WriteFile(path string, c *models.Collection) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, c); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func (r *TextRenderer) insight(rank int, p models.RedditPost, c *models.Collection) insightView {
	v := insightView{
		Rank:     rank,
		Title:    orDefault(p.Title, "N/A"),
		Author:   orDefault(p.Author, "N/A"),
		Score:    p.Score,
		Comments: p.NumComments,
		Date:     p.Created().Format("Jan 02, 2006"),
		URL:      p.URL(),
	}

	if p.Selftext != "" {
		lines := strings.Split(p.Selftext, "\n")
		if len(lines) > PreviewLines {
			lines = lines[:PreviewLines]
		}
		v.Preview = strings.Join(lines, "\n")
		v.MoreContent = utf8.RuneCountInString(p.Selftext) > MoreContentChars
	}

	if rank <= sources.TopCommentPosts {
		if comment, ok := c.TopComment(p.ID); ok {
			v.Comment = &comment
		}
	}

	if r.detector != nil {
		v.Language = r.detector.Detect(p.Title, content.Clean(p.Selftext))
	}
	return v
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
