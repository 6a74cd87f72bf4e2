package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; EngineerPath/1.0; +http://localhost)"
	DefaultBaseURL   = "https://www.reddit.com"
)

type AppConfig struct {
	Subreddit      string
	SearchTerm     string
	Limit          int
	OutputDir      string
	UserAgent      string
	BaseURL        string
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	ProxyURL       string
	DetectLanguage bool
	ArchiveDSN     string
	MetricsFile    string
	SMTPHost       string
	SMTPPort       string
	SMTPFrom       string
	SMTPPassword   string
	MailTo         string
	LogLevel       slog.Level
}

// env maps viper keys to the environment variables that feed them.
var env = map[string]string{
	"subreddit":       "SUBREDDIT",
	"term":            "SEARCH_TERM",
	"limit":           "RESULT_LIMIT",
	"output_dir":      "OUTPUT_DIR",
	"user_agent":      "USER_AGENT",
	"base_url":        "REDDIT_BASE_URL",
	"request_delay":   "REQUEST_DELAY",
	"request_timeout": "REQUEST_TIMEOUT",
	"proxy_url":       "PROXY_URL",
	"detect_language": "DETECT_LANGUAGE",
	"archive_dsn":     "ARCHIVE_DSN",
	"metrics_file":    "METRICS_FILE",
	"smtp_host":       "SMTP_HOST",
	"smtp_port":       "SMTP_PORT",
	"smtp_from":       "SMTP_FROM",
	"smtp_password":   "SMTP_PASSWORD",
	"mail_to":         "MAIL_TO",
	"log_level":       "LOG_LEVEL",
}

// New returns a viper instance with defaults and environment bindings set.
// Command-line flags bound later take precedence over both.
func New() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", name, err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("subreddit", "askengineers")
	v.SetDefault("term", "Career")
	v.SetDefault("limit", 100)
	v.SetDefault("output_dir", "Data")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("request_delay", "2s")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("detect_language", false)
	v.SetDefault("smtp_port", "587")
	v.SetDefault("log_level", "INFO")
}

func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		Subreddit:      strings.TrimSpace(v.GetString("subreddit")),
		SearchTerm:     strings.TrimSpace(v.GetString("term")),
		Limit:          v.GetInt("limit"),
		OutputDir:      v.GetString("output_dir"),
		UserAgent:      v.GetString("user_agent"),
		BaseURL:        strings.TrimRight(v.GetString("base_url"), "/"),
		RequestDelay:   v.GetDuration("request_delay"),
		RequestTimeout: v.GetDuration("request_timeout"),
		ProxyURL:       v.GetString("proxy_url"),
		DetectLanguage: v.GetBool("detect_language"),
		ArchiveDSN:     v.GetString("archive_dsn"),
		MetricsFile:    v.GetString("metrics_file"),
		SMTPHost:       v.GetString("smtp_host"),
		SMTPPort:       v.GetString("smtp_port"),
		SMTPFrom:       v.GetString("smtp_from"),
		SMTPPassword:   v.GetString("smtp_password"),
		MailTo:         v.GetString("mail_to"),
	}

	var err error
	cfg.LogLevel, err = ParseLogLevel(v.GetString("log_level"))
	if err != nil {
		slog.Error("Invalid LOG_LEVEL", "error", err)
		cfg.LogLevel = slog.LevelInfo
	}

	return cfg, cfg.Validate()
}

func (c AppConfig) Validate() error {
	if c.Subreddit == "" {
		return fmt.Errorf("subreddit must be set")
	}
	if c.SearchTerm == "" {
		return fmt.Errorf("search term must be set")
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be > 0")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir must be set")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent must be set")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay must be >= 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be > 0")
	}
	if c.MailTo != "" && c.SMTPHost == "" {
		return fmt.Errorf("smtp host must be set when mail_to is set")
	}
	return nil
}

func (c AppConfig) MailEnabled() bool {
	return c.MailTo != ""
}

func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	var err = level.UnmarshalText([]byte(s))
	return level, err
}
