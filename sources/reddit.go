package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kova98/insightgrep/models"
)

// ErrRateLimited is returned when Reddit answers 429. Callers must abort the
// run; the request is never retried.
var ErrRateLimited = errors.New("reddit rate limit reached (429)")

const (
	EndpointSearch   = "search"
	EndpointComments = "comments"

	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"

	commentBodyRunes = 200
	errorBodyBytes   = 300
)

type Config struct {
	BaseURL   string
	UserAgent string
	// Delay is slept after every successful request.
	Delay time.Duration
}

type RequestObserver interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

type RedditClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	cfg        Config
	observer   RequestObserver
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewRedditClient(logger *slog.Logger, httpClient *http.Client, cfg Config, observer RequestObserver) *RedditClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RedditClient{
		logger:     logger,
		httpClient: httpClient,
		cfg:        cfg,
		observer:   observer,
		sleep:      sleepContext,
	}
}

// Get fetches path relative to the configured base URL. Transport, status and
// decoding failures are logged and reported as a nil body with a nil error;
// only rate limiting and cancellation are returned as errors.
func (c *RedditClient) Get(ctx context.Context, endpoint, path string, params url.Values) (json.RawMessage, error) {
	target := c.cfg.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	c.logger.Info("request", "method", http.MethodGet, "url", target)
	start := time.Now()
	body, err := c.fetch(ctx, target)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrRateLimited):
		c.observe(endpoint, OutcomeRateLimited, elapsed)
		c.logger.Warn("rate limited, aborting", "url", target)
		return nil, err
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		c.observe(endpoint, OutcomeError, elapsed)
		c.logger.Error("fetch failed", "url", target, "error", err)
		return nil, nil
	}

	c.observe(endpoint, OutcomeOK, elapsed)
	if err := c.sleep(ctx, c.cfg.Delay); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *RedditClient) fetch(ctx context.Context, target string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))
		return nil, fmt.Errorf("reddit returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("reddit returned invalid json")
	}
	return body, nil
}

// Search runs one relevance-sorted search restricted to the subreddit.
// A nil listing means the search produced no data.
func (c *RedditClient) Search(ctx context.Context, subreddit, term string, limit int) (*models.RedditListing, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("restrict_sr", "1")
	params.Set("sort", "relevance")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	raw, err := c.Get(ctx, EndpointSearch, "/r/"+url.PathEscape(subreddit)+"/search.json", params)
	if err != nil || raw == nil {
		return nil, err
	}

	var listing models.RedditListing
	if err := json.Unmarshal(raw, &listing); err != nil {
		c.logger.Error("decode search response", "error", err)
		return nil, nil
	}
	return &listing, nil
}

// TopComment returns the highest ranked comment of a post, or nil when the
// thread has none or the response is not shaped as expected.
func (c *RedditClient) TopComment(ctx context.Context, subreddit, postID string) (*models.RedditComment, error) {
	params := url.Values{}
	params.Set("raw_json", "1")
	params.Set("limit", "1")

	path := fmt.Sprintf("/r/%s/comments/%s.json", url.PathEscape(subreddit), url.PathEscape(postID))
	raw, err := c.Get(ctx, EndpointComments, path, params)
	if err != nil || raw == nil {
		return nil, err
	}

	// [0] is the post itself, [1] the comment tree.
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 2 {
		c.logger.Debug("no comment tree", "post_id", postID)
		return nil, nil
	}

	var listing models.RedditCommentListing
	if err := json.Unmarshal(parts[1], &listing); err != nil {
		c.logger.Debug("malformed comment tree", "post_id", postID, "error", err)
		return nil, nil
	}
	if len(listing.Data.Children) == 0 {
		return nil, nil
	}

	first := listing.Data.Children[0]
	if first.Kind != "" && first.Kind != models.KindComment {
		return nil, nil
	}

	comment := first.Data
	if comment.Author == "" {
		comment.Author = "N/A"
	}
	comment.Body = truncateRunes(comment.Body, commentBodyRunes)
	return &comment, nil
}

func (c *RedditClient) observe(endpoint, outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, outcome, elapsed)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
