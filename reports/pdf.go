package reports

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/kova98/insightgrep/content"
	"github.com/kova98/insightgrep/data"
	"github.com/kova98/insightgrep/enums"
	"github.com/kova98/insightgrep/matchers"
	"github.com/kova98/insightgrep/models"
)

var (
	ErrInputNotFound = errors.New("pdf input not found")
	ErrRender        = errors.New("pdf render failed")
)

const (
	CoverTitle    = "Career Insight for Students"
	CoverSubtitle = "Real-World Stories & Advice from r/AskEngineers"
	CoverBlurb    = "Generated from user discussions regarding career paths, workplace ethics, and engineering reality."

	EmptyBodyPlaceholder = "*(No text content - Discussion Thread)*"

	margin = 72.0

	fontFamily = "DejaVu"
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

var divider = strings.Repeat("_", 50)

// CategoryRecorder receives the number of posts placed in each chapter and
// the number dropped per filter reason.
type CategoryRecorder interface {
	RecordCategories(counts map[enums.Category]int)
	RecordDropped(counts map[string]int)
}

type BookPost struct {
	Title  string
	Author string
	Body   string
}

type Chapter struct {
	Category enums.Category
	Posts    []BookPost
}

type Book struct {
	Chapters []Chapter
	Dropped  map[string]int
}

// BuildBook filters, cleans and groups every post. Chapters only exist for
// categories with at least one post and are ordered by label.
func BuildBook(posts []models.RedditPost) Book {
	grouped := make(map[enums.Category][]BookPost)
	dropped := make(map[string]int)

	for _, p := range posts {
		title := orDefault(p.Title, "Untitled")
		body := content.Clean(p.Selftext)

		if keep, reason := matchers.Keep(p.Author, title, body); !keep {
			dropped[reason]++
			continue
		}

		category := matchers.Categorize(title, body)
		grouped[category] = append(grouped[category], BookPost{
			Title:  title,
			Author: orDefault(p.Author, "Anonymous"),
			Body:   body,
		})
	}

	book := Book{Dropped: dropped}
	for category, chapterPosts := range grouped {
		book.Chapters = append(book.Chapters, Chapter{Category: category, Posts: chapterPosts})
	}
	sort.Slice(book.Chapters, func(i, j int) bool {
		return book.Chapters[i].Category < book.Chapters[j].Category
	})
	return book
}

func (b Book) Counts() map[enums.Category]int {
	counts := make(map[enums.Category]int, len(b.Chapters))
	for _, ch := range b.Chapters {
		counts[ch.Category] = len(ch.Posts)
	}
	return counts
}

type PDFRenderer struct {
	logger   *slog.Logger
	recorder CategoryRecorder
}

func NewPDFRenderer(logger *slog.Logger, recorder CategoryRecorder) *PDFRenderer {
	return &PDFRenderer{
		logger:   logger,
		recorder: recorder,
	}
}

// Render reads the artifact at inputPath and writes the book to outputPath.
func (r *PDFRenderer) Render(ctx context.Context, inputPath, outputPath string) error {
	posts, skipped, err := data.ReadArtifact(inputPath)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Error("pdf input not found, ensure the collection step ran first", "input", inputPath)
		return fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	if skipped > 0 {
		r.logger.Debug("skipped non-post entries", "count", skipped)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	book := BuildBook(posts)
	r.logger.Info("book assembled", "posts", len(posts), "chapters", len(book.Chapters), "dropped", book.Dropped)
	if r.recorder != nil {
		r.recorder.RecordCategories(book.Counts())
		r.recorder.RecordDropped(book.Dropped)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
		return fmt.Errorf("%w: create output dir: %v", ErrRender, err)
	}
	if err := writeBook(book, outputPath); err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}

	abs, _ := filepath.Abs(outputPath)
	r.logger.Info("pdf created", "path", abs)
	return nil
}

func writeBook(book Book, outputPath string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(CoverTitle, true)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("load fonts: %w", err)
	}

	writeCover(pdf)
	for _, chapter := range book.Chapters {
		pdf.AddPage()
		writeChapter(pdf, chapter)
	}

	return pdf.OutputFileAndClose(outputPath)
}

func writeCover(pdf *fpdf.Fpdf) {
	pdf.AddPage()
	pdf.Ln(100)

	pdf.SetFont(fontFamily, "B", 24)
	pdf.SetTextColor(0, 0, 139)
	pdf.MultiCell(0, 30, CoverTitle, "", "C", false)
	pdf.Ln(12)

	pdf.SetFont(fontFamily, "B", 14)
	pdf.SetTextColor(128, 128, 128)
	pdf.MultiCell(0, 18, CoverSubtitle, "", "C", false)
	pdf.Ln(50)

	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 14, CoverBlurb, "", "L", false)
}

func writeChapter(pdf *fpdf.Fpdf, chapter Chapter) {
	pdf.SetFont(fontFamily, "B", 18)
	pdf.SetTextColor(0, 128, 128)
	pdf.MultiCell(0, 22, string(chapter.Category), "", "L", false)
	pdf.Ln(22)

	for _, post := range chapter.Posts {
		pdf.Ln(10)
		pdf.SetFont(fontFamily, "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 15, post.Title, "", "L", false)
		pdf.Ln(4)

		pdf.SetFont(fontFamily, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.MultiCell(0, 10, "Posted by u/"+post.Author, "", "L", false)
		pdf.Ln(8)

		if post.Body != "" {
			pdf.SetFont(fontFamily, "", 10)
			pdf.SetTextColor(0, 0, 0)
			for _, para := range strings.Split(post.Body, "\n") {
				para = strings.TrimSpace(para)
				if para == "" {
					continue
				}
				pdf.MultiCell(0, 14, para, "", "J", false)
				pdf.Ln(6)
			}
		} else {
			pdf.MultiCell(0, 10, EmptyBodyPlaceholder, "", "L", false)
		}

		pdf.Ln(15)
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 14, divider, "", "L", false)
		pdf.Ln(15)
	}
}
