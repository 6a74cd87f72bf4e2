package sources

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kova98/insightgrep/models"
)

// ErrSearchFailed means the search call itself produced no data.
var ErrSearchFailed = errors.New("failed to fetch search results")

// TopCommentPosts is how many of the highest ranked posts get their top
// comment fetched.
const TopCommentPosts = 10

type Collector struct {
	logger *slog.Logger
	client *RedditClient
	now    func() time.Time
}

func NewCollector(logger *slog.Logger, client *RedditClient) *Collector {
	return &Collector{
		logger: logger,
		client: client,
		now:    time.Now,
	}
}

func (c *Collector) Collect(ctx context.Context, subreddit, term string, limit int) (*models.Collection, error) {
	c.logger.Info("searching subreddit", "subreddit", subreddit, "term", term, "limit", limit)

	listing, err := c.client.Search(ctx, subreddit, term, limit)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrSearchFailed
	}

	posts := listing.Data.Children
	if posts == nil {
		posts = []models.Envelope{}
	}
	c.logger.Info("found posts", "count", len(posts))

	collection := &models.Collection{
		RunID:       uuid.New(),
		Subreddit:   subreddit,
		Term:        term,
		CollectedAt: c.now(),
		Posts:       posts,
		TopComments: make(map[string]models.RedditComment),
	}

	for i, post := range posts {
		if i >= TopCommentPosts {
			break
		}
		if post.Data.ID == "" {
			c.logger.Debug("post without id, skipping top comment", "rank", i+1)
			continue
		}

		comment, err := c.client.TopComment(ctx, subreddit, post.Data.ID)
		if err != nil {
			return nil, err
		}
		if comment != nil {
			collection.TopComments[post.Data.ID] = *comment
		}
	}

	c.logger.Info("collected top comments", "count", len(collection.TopComments))
	return collection, nil
}
