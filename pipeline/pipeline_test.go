package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kova98/insightgrep/data"
	"github.com/kova98/insightgrep/metrics"
	"github.com/kova98/insightgrep/models"
	"github.com/kova98/insightgrep/reports"
	"github.com/kova98/insightgrep/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCollector struct {
	collection *models.Collection
	err        error
}

func (f *fakeCollector) Collect(_ context.Context, subreddit, term string, _ int) (*models.Collection, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.collection.Subreddit = subreddit
	f.collection.Term = term
	return f.collection, nil
}

type fakePDF struct {
	calls [][2]string
	err   error
}

func (f *fakePDF) Render(_ context.Context, inputPath, outputPath string) error {
	f.calls = append(f.calls, [2]string{inputPath, outputPath})
	return f.err
}

type fakeArchive struct {
	run   data.Run
	posts []data.RunPost
	err   error
	// lost drops that many posts from the stored run count.
	lost  int
	reads int
}

func (f *fakeArchive) SaveRun(_ context.Context, run data.Run, posts []data.RunPost) error {
	f.run, f.posts = run, posts
	return f.err
}

func (f *fakeArchive) GetRun(_ context.Context, id string) (data.Run, error) {
	f.reads++
	if id != f.run.ID {
		return data.Run{}, errors.New("run not found")
	}
	stored := f.run
	stored.PostCount -= f.lost
	return stored, nil
}

func (f *fakeArchive) CategoryCounts(_ context.Context, runID string) (map[string]int, error) {
	counts := map[string]int{}
	for _, p := range f.posts {
		if p.RunID == runID {
			counts[p.Category]++
		}
	}
	return counts, nil
}

type fakeMailer struct {
	pdfPath string
	sent    []models.Email
}

func (f *fakeMailer) ReportEmail(recipient string, c *models.Collection, pdfPath string) (models.Email, error) {
	f.pdfPath = pdfPath
	return models.Email{To: recipient, Subject: fmt.Sprintf("%d posts", len(c.Posts))}, nil
}

func (f *fakeMailer) Send(mail models.Email) error {
	f.sent = append(f.sent, mail)
	return nil
}

func collection(n int) *models.Collection {
	c := &models.Collection{RunID: uuid.New(), CollectedAt: time.Now(), TopComments: map[string]models.RedditComment{}}
	c.Posts = []models.Envelope{}
	for i := 0; i < n; i++ {
		c.Posts = append(c.Posts, models.Envelope{Kind: models.KindPost, Data: models.RedditPost{
			ID:    fmt.Sprintf("p%d", i),
			Title: fmt.Sprintf("First job question %d", i),
		}})
	}
	return c
}

func defaultOptions(dir string) Options {
	return Options{Subreddit: "askengineers", Term: "Career", Limit: 100, OutputDir: dir}
}

func TestRun_ZeroPosts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Data")
	pdf := &fakePDF{}
	runner := NewRunner(discardLogger, &fakeCollector{collection: collection(0)}, reports.NewTextRenderer(nil), Steps{PDF: pdf})

	summary, err := runner.Run(context.Background(), defaultOptions(dir))

	require.NoError(t, err)
	assert.Zero(t, summary.Posts)

	raw, err := os.ReadFile(filepath.Join(dir, ArtifactFile))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	text, err := os.ReadFile(filepath.Join(dir, TextFile))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total Posts Analyzed: 0")
	assert.Contains(t, string(text), "STUDENT TAKEAWAYS")

	require.Len(t, pdf.calls, 1)
	assert.Equal(t, [2]string{filepath.Join(dir, ArtifactFile), filepath.Join(dir, PDFFile)}, pdf.calls[0])
	assert.Equal(t, filepath.Join(dir, PDFFile), summary.PDFPath)
}

func TestRun_CollectionFailureWritesNothing(t *testing.T) {
	for _, sentinel := range []error{sources.ErrRateLimited, sources.ErrSearchFailed} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "Data")
			pdf := &fakePDF{}
			runner := NewRunner(discardLogger, &fakeCollector{err: sentinel}, reports.NewTextRenderer(nil), Steps{PDF: pdf})

			summary, err := runner.Run(context.Background(), defaultOptions(dir))

			assert.ErrorIs(t, err, sentinel)
			assert.Nil(t, summary)
			assert.NoDirExists(t, dir)
			assert.Empty(t, pdf.calls)
		})
	}
}

func TestRun_SkipPDF(t *testing.T) {
	pdf := &fakePDF{}
	runner := NewRunner(discardLogger, &fakeCollector{collection: collection(3)}, reports.NewTextRenderer(nil), Steps{PDF: pdf})
	opts := defaultOptions(t.TempDir())
	opts.SkipPDF = true

	summary, err := runner.Run(context.Background(), opts)

	require.NoError(t, err)
	assert.Empty(t, pdf.calls)
	assert.Empty(t, summary.PDFPath)
}

func TestRun_OptionalStepFailuresAreNotFatal(t *testing.T) {
	run := metrics.NewRun()
	steps := Steps{
		PDF:     &fakePDF{err: reports.ErrRender},
		Archive: &fakeArchive{err: errors.New("connection refused")},
		Metrics: run,
	}
	runner := NewRunner(discardLogger, &fakeCollector{collection: collection(2)}, reports.NewTextRenderer(nil), steps)

	summary, err := runner.Run(context.Background(), defaultOptions(t.TempDir()))

	require.NoError(t, err)
	assert.Equal(t, []string{StepArchive, StepPDF}, summary.Failed)
	assert.False(t, summary.Archived)
	assert.Empty(t, summary.PDFPath)

	snap, err := run.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, float64(1), snap[`insightgrep_step_failures_total{step="pdf"}`])
	assert.Equal(t, float64(1), snap[`insightgrep_step_failures_total{step="archive"}`])
	assert.Equal(t, float64(2), snap["insightgrep_posts_collected"])
}

func TestRun_ArchiveMailMetricsAndConsole(t *testing.T) {
	dir := t.TempDir()
	c := collection(4)
	archive := &fakeArchive{}
	mailer := &fakeMailer{}
	run := metrics.NewRun()
	var console bytes.Buffer
	runner := NewRunner(discardLogger, &fakeCollector{collection: c}, reports.NewTextRenderer(nil), Steps{
		PDF:     &fakePDF{},
		Archive: archive,
		Mailer:  mailer,
		Metrics: run,
		Console: &console,
	})
	opts := defaultOptions(dir)
	opts.MailTo = "student@example.com"
	opts.MetricsFile = filepath.Join(dir, "insightgrep.prom")

	summary, err := runner.Run(context.Background(), opts)

	require.NoError(t, err)
	assert.Empty(t, summary.Failed)
	assert.True(t, summary.Archived)
	assert.Equal(t, c.RunID.String(), archive.run.ID)
	assert.Len(t, archive.posts, 4)
	assert.Equal(t, 1, archive.reads)

	assert.True(t, summary.Mailed)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "student@example.com", mailer.sent[0].To)
	assert.Equal(t, filepath.Join(dir, PDFFile), mailer.pdfPath)

	assert.Contains(t, console.String(), "INSIGHT #4: First job question 3")
	assert.FileExists(t, opts.MetricsFile)
	prom, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "insightgrep_posts_collected 4")
}

func TestRun_ArchiveReadBackMismatchFails(t *testing.T) {
	run := metrics.NewRun()
	runner := NewRunner(discardLogger, &fakeCollector{collection: collection(3)}, reports.NewTextRenderer(nil), Steps{
		Archive: &fakeArchive{lost: 1},
		Metrics: run,
	})

	summary, err := runner.Run(context.Background(), defaultOptions(t.TempDir()))

	require.NoError(t, err)
	assert.False(t, summary.Archived)
	assert.Equal(t, []string{StepArchive}, summary.Failed)
	snap, err := run.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, float64(1), snap[`insightgrep_step_failures_total{step="archive"}`])
}

func TestRun_PDFFailureStillMailsWithoutAttachment(t *testing.T) {
	mailer := &fakeMailer{}
	runner := NewRunner(discardLogger, &fakeCollector{collection: collection(1)}, reports.NewTextRenderer(nil), Steps{
		PDF:    &fakePDF{err: reports.ErrRender},
		Mailer: mailer,
	})
	opts := defaultOptions(t.TempDir())
	opts.MailTo = "student@example.com"

	summary, err := runner.Run(context.Background(), opts)

	require.NoError(t, err)
	assert.True(t, summary.Mailed)
	assert.Empty(t, mailer.pdfPath)
}

func TestRun_EndToEnd(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/search.json") {
			listing := models.RedditListing{Kind: "Listing"}
			listing.Data.Children = []models.Envelope{
				{Kind: models.KindPost, Data: models.RedditPost{ID: "a", Title: "Is a master's degree worth it?", Author: "grad", Selftext: "Thinking about it.", Permalink: "/r/askengineers/comments/a/"}},
				{Kind: models.KindPost, Data: models.RedditPost{ID: "b", Title: "Career Monday (March 04, 2024)", Author: models.AutoModerator}},
				{Kind: models.KindPost, Data: models.RedditPost{ID: "c", Title: "My boss ignores safety ethics", Author: "civil", Permalink: "/r/askengineers/comments/c/"}},
			}
			_ = json.NewEncoder(w).Encode(listing)
			return
		}
		fmt.Fprint(w, `[{"kind": "Listing", "data": {"children": []}}, {"kind": "Listing", "data": {"children": [{"kind": "t1", "data": {"author": "mentor", "body": "Only if your employer pays.", "score": 77}}]}}]`)
	}))
	defer srv.Close()

	client := sources.NewRedditClient(discardLogger, srv.Client(), sources.Config{BaseURL: srv.URL, UserAgent: "test-agent"}, nil)
	collector := sources.NewCollector(discardLogger, client)
	run := metrics.NewRun()
	runner := NewRunner(discardLogger, collector, reports.NewTextRenderer(nil), Steps{
		PDF:     reports.NewPDFRenderer(discardLogger, run),
		Metrics: run,
	})
	dir := filepath.Join(t.TempDir(), "Data")

	summary, err := runner.Run(context.Background(), defaultOptions(dir))

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Posts)
	assert.Len(t, requests, 4)
	assert.Empty(t, summary.Failed)

	text, err := os.ReadFile(summary.TextPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total Posts Analyzed: 3")
	assert.Contains(t, string(text), `"Only if your employer pays."`)

	posts, _, err := data.ReadArtifact(summary.ArtifactPath)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "Is a master's degree worth it?", posts[0].Title)

	assert.FileExists(t, summary.PDFPath)
	snap, err := run.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, float64(1), snap[`insightgrep_posts_filtered_total{reason="automoderator"}`])
}
