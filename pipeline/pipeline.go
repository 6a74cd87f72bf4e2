// Package pipeline drives one run: collect, persist, render, and the
// optional archive, PDF, mail and metrics steps.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kova98/insightgrep/data"
	"github.com/kova98/insightgrep/metrics"
	"github.com/kova98/insightgrep/models"
	"github.com/pkg/errors"
)

const (
	ArtifactFile = "reddit_posts.json"
	TextFile     = "reddit_posts.txt"
	PDFFile      = "Career_Insights_for_Students.pdf"

	StepArchive = "archive"
	StepPDF     = "pdf"
	StepMail    = "mail"
	StepMetrics = "metrics"
)

type Collector interface {
	Collect(ctx context.Context, subreddit, term string, limit int) (*models.Collection, error)
}

type TextRenderer interface {
	Render(w io.Writer, c *models.Collection) error
	WriteFile(path string, c *models.Collection) error
}

// PDFStep turns the artifact at inputPath into the book at outputPath.
type PDFStep interface {
	Render(ctx context.Context, inputPath, outputPath string) error
}

type Archiver interface {
	SaveRun(ctx context.Context, run data.Run, posts []data.RunPost) error
	GetRun(ctx context.Context, id string) (data.Run, error)
	CategoryCounts(ctx context.Context, runID string) (map[string]int, error)
}

type Mailer interface {
	ReportEmail(recipient string, c *models.Collection, pdfPath string) (models.Email, error)
	Send(mail models.Email) error
}

// Steps holds the optional stages. Nil fields are skipped.
type Steps struct {
	PDF     PDFStep
	Archive Archiver
	Mailer  Mailer
	Metrics *metrics.Run
	// Console receives a copy of the text report.
	Console io.Writer
}

type Options struct {
	Subreddit   string
	Term        string
	Limit       int
	OutputDir   string
	SkipPDF     bool
	MailTo      string
	MetricsFile string
}

type Summary struct {
	RunID        uuid.UUID
	Posts        int
	ArtifactPath string
	TextPath     string
	PDFPath      string
	Archived     bool
	Mailed       bool
	Failed       []string
}

type Runner struct {
	logger    *slog.Logger
	collector Collector
	text      TextRenderer
	steps     Steps
	now       func() time.Time
}

func NewRunner(logger *slog.Logger, collector Collector, text TextRenderer, steps Steps) *Runner {
	return &Runner{
		logger:    logger,
		collector: collector,
		text:      text,
		steps:     steps,
		now:       time.Now,
	}
}

// Run returns an error only when collection fails or an output file cannot be
// written. Every later step logs its failure, records it in the summary and
// lets the run carry on.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	collection, err := r.collector.Collect(ctx, opts.Subreddit, opts.Term, opts.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "collect posts")
	}
	if r.steps.Metrics != nil {
		r.steps.Metrics.PostsCollected(len(collection.Posts))
	}

	summary := &Summary{
		RunID:        collection.RunID,
		Posts:        len(collection.Posts),
		ArtifactPath: filepath.Join(opts.OutputDir, ArtifactFile),
		TextPath:     filepath.Join(opts.OutputDir, TextFile),
	}

	if err := data.WriteArtifact(summary.ArtifactPath, collection.Posts); err != nil {
		return summary, errors.Wrap(err, "persist posts")
	}
	if err := r.text.WriteFile(summary.TextPath, collection); err != nil {
		return summary, errors.Wrap(err, "write text report")
	}
	if r.steps.Console != nil {
		if err := r.text.Render(r.steps.Console, collection); err != nil {
			r.logger.Warn("failed to echo report", "error", err)
		}
	}
	r.logger.Info("results saved", "json", summary.ArtifactPath, "text", summary.TextPath)

	if r.steps.Archive != nil {
		run, posts := data.NewRun(collection)
		if err := r.archive(ctx, run, posts); err != nil {
			r.fail(summary, StepArchive, err)
		} else {
			summary.Archived = true
		}
	}

	if !opts.SkipPDF && r.steps.PDF != nil {
		pdfPath := filepath.Join(opts.OutputDir, PDFFile)
		if err := r.steps.PDF.Render(ctx, summary.ArtifactPath, pdfPath); err != nil {
			r.fail(summary, StepPDF, err)
		} else {
			summary.PDFPath = pdfPath
		}
	}

	if opts.MailTo != "" && r.steps.Mailer != nil {
		if err := r.mail(opts.MailTo, collection, summary.PDFPath); err != nil {
			r.fail(summary, StepMail, err)
		} else {
			summary.Mailed = true
		}
	}

	if r.steps.Metrics != nil {
		r.steps.Metrics.Finish(r.now())
		if opts.MetricsFile != "" {
			if err := r.steps.Metrics.WriteTextfile(opts.MetricsFile); err != nil {
				r.fail(summary, StepMetrics, err)
			}
		}
	}

	r.logger.Info("run finished",
		"run_id", summary.RunID,
		"posts", summary.Posts,
		"pdf", summary.PDFPath,
		"archived", summary.Archived,
		"mailed", summary.Mailed,
		"failed_steps", summary.Failed,
	)
	return summary, nil
}

func (r *Runner) mail(recipient string, c *models.Collection, pdfPath string) error {
	email, err := r.steps.Mailer.ReportEmail(recipient, c, pdfPath)
	if err != nil {
		return errors.Wrap(err, "build report email")
	}
	return errors.Wrap(r.steps.Mailer.Send(email), "send report email")
}

func (r *Runner) fail(summary *Summary, step string, err error) {
	r.logger.Error("step failed", "step", step, "error", err)
	summary.Failed = append(summary.Failed, step)
	if r.steps.Metrics != nil {
		r.steps.Metrics.StepFailed(step)
	}
}

// archive stores the run and reads it back to confirm every post landed.
func (r *Runner) archive(ctx context.Context, run data.Run, posts []data.RunPost) error {
	if err := r.steps.Archive.SaveRun(ctx, run, posts); err != nil {
		return err
	}
	stored, err := r.steps.Archive.GetRun(ctx, run.ID)
	if err != nil {
		return errors.Wrap(err, "read back archived run")
	}
	if stored.PostCount != len(posts) {
		return errors.Errorf("archived run %s has %d posts, expected %d", run.ID, stored.PostCount, len(posts))
	}

	counts, err := r.steps.Archive.CategoryCounts(ctx, run.ID)
	if err != nil {
		r.logger.Warn("failed to read archived categories", "run_id", run.ID, "error", err)
	}
	r.logger.Info("run archived", "run_id", run.ID, "posts", stored.PostCount, "categories", counts)
	return nil
}
