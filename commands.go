package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kova98/insightgrep/config"
	"github.com/kova98/insightgrep/content"
	"github.com/kova98/insightgrep/data"
	"github.com/kova98/insightgrep/data/repos"
	"github.com/kova98/insightgrep/metrics"
	"github.com/kova98/insightgrep/notifiers"
	"github.com/kova98/insightgrep/pipeline"
	"github.com/kova98/insightgrep/reports"
	"github.com/kova98/insightgrep/sources"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	exitOK      = 0
	exitFailure = 1
)

// execute runs the command tree and maps its outcome to a process exit code.
func execute(ctx context.Context, args []string) int {
	v, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	cmd := newRootCmd(v)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		return exitFailure
	}
	return exitOK
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cfg := &config.AppConfig{}

	cmd := &cobra.Command{
		Use:           "insightgrep",
		Short:         "Collects career discussions from Reddit into a text report and a PDF guide",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(v)
			if err != nil {
				setupLogger(loaded.LogLevel)
				return fmt.Errorf("invalid configuration: %w", err)
			}
			*cfg = loaded
			setupLogger(cfg.LogLevel)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("output-dir", "", "directory for the JSON, text and PDF outputs (env OUTPUT_DIR)")
	flags.String("log-level", "", "DEBUG, INFO, WARN or ERROR (env LOG_LEVEL)")
	mustBind(v, "output_dir", flags.Lookup("output-dir"))
	mustBind(v, "log_level", flags.Lookup("log-level"))

	cmd.AddCommand(newRunCmd(v, cfg), newPDFCmd(cfg))
	return cmd
}

func newRunCmd(v *viper.Viper, cfg *config.AppConfig) *cobra.Command {
	var skipPDF, pdfSubprocess bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search a subreddit, write the artifact and text report, then build the PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, *cfg, skipPDF, pdfSubprocess)
		},
	}

	flags := cmd.Flags()
	flags.String("subreddit", "", "subreddit to search (env SUBREDDIT)")
	flags.String("term", "", "search term (env SEARCH_TERM)")
	flags.Int("limit", 0, "maximum search results (env RESULT_LIMIT)")
	flags.Bool("detect-language", false, "add a language line to every insight (env DETECT_LANGUAGE)")
	flags.String("archive-dsn", "", "postgres:// or sqlite:// archive for the run (env ARCHIVE_DSN)")
	flags.String("metrics-file", "", "write run metrics in Prometheus text format (env METRICS_FILE)")
	flags.String("mail-to", "", "mail the report and PDF to this address (env MAIL_TO)")
	flags.BoolVar(&skipPDF, "skip-pdf", false, "do not build the PDF")
	flags.BoolVar(&pdfSubprocess, "pdf-subprocess", false, "build the PDF in a separate insightgrep pdf process")

	mustBind(v, "subreddit", flags.Lookup("subreddit"))
	mustBind(v, "term", flags.Lookup("term"))
	mustBind(v, "limit", flags.Lookup("limit"))
	mustBind(v, "detect_language", flags.Lookup("detect-language"))
	mustBind(v, "archive_dsn", flags.Lookup("archive-dsn"))
	mustBind(v, "metrics_file", flags.Lookup("metrics-file"))
	mustBind(v, "mail_to", flags.Lookup("mail-to"))

	return cmd
}

func newPDFCmd(cfg *config.AppConfig) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Build the PDF guide from a collected reddit_posts.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				input = filepath.Join(cfg.OutputDir, pipeline.ArtifactFile)
			}
			if output == "" {
				output = filepath.Join(cfg.OutputDir, pipeline.PDFFile)
			}
			renderer := reports.NewPDFRenderer(slog.Default().With("component", "pdf"), nil)
			return renderer.Render(cmd.Context(), input, output)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "artifact to read (default <output-dir>/"+pipeline.ArtifactFile+")")
	cmd.Flags().StringVar(&output, "output", "", "PDF to write (default <output-dir>/"+pipeline.PDFFile+")")
	return cmd
}

func runPipeline(cmd *cobra.Command, cfg config.AppConfig, skipPDF, pdfSubprocess bool) error {
	ctx := cmd.Context()
	logger := slog.Default()

	httpClient, err := sources.NewHTTPClient(cfg.RequestTimeout, cfg.ProxyURL)
	if err != nil {
		return fmt.Errorf("create http client: %w", err)
	}

	run := metrics.NewRun()
	client := sources.NewRedditClient(logger.With("component", "reddit"), httpClient, sources.Config{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Delay:     cfg.RequestDelay,
	}, run)
	collector := sources.NewCollector(logger.With("component", "collector"), client)

	var detector *content.LanguageDetector
	if cfg.DetectLanguage {
		detector = content.NewLanguageDetector()
	}

	steps := pipeline.Steps{
		Metrics: run,
		Console: cmd.OutOrStdout(),
	}

	if !skipPDF {
		if pdfSubprocess {
			self, err := pipeline.Self()
			if err != nil {
				return err
			}
			steps.PDF = self
		} else {
			steps.PDF = reports.NewPDFRenderer(logger.With("component", "pdf"), run)
		}
	}

	if cfg.ArchiveDSN != "" {
		db, err := data.Open(cfg.ArchiveDSN)
		if err != nil {
			logger.Error("archive unavailable, continuing without it", "error", err)
			run.StepFailed(pipeline.StepArchive)
		} else {
			defer func() {
				if err := db.Close(); err != nil {
					logger.Error("failed to close archive", "error", err)
				}
			}()
			steps.Archive = repos.NewRunRepo(db)
		}
	}

	if cfg.MailEnabled() {
		steps.Mailer = notifiers.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
	}

	logger.Info("searching",
		"subreddit", cfg.Subreddit,
		"term", cfg.SearchTerm,
		"limit", cfg.Limit,
		"output_dir", cfg.OutputDir,
	)

	runner := pipeline.NewRunner(logger.With("component", "pipeline"), collector, reports.NewTextRenderer(detector), steps)
	_, err = runner.Run(ctx, pipeline.Options{
		Subreddit:   cfg.Subreddit,
		Term:        cfg.SearchTerm,
		Limit:       cfg.Limit,
		OutputDir:   cfg.OutputDir,
		SkipPDF:     skipPDF,
		MailTo:      cfg.MailTo,
		MetricsFile: cfg.MetricsFile,
	})
	return err
}

func setupLogger(level slog.Level) {
	opts := slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &opts))
	slog.SetDefault(logger)
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
