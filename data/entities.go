package data

import (
	"github.com/kova98/insightgrep/content"
	"github.com/kova98/insightgrep/matchers"
	"github.com/kova98/insightgrep/models"
)

type Run struct {
	ID            string `db:"id"`
	Subreddit     string `db:"subreddit"`
	Term          string `db:"term"`
	CollectedUnix int64  `db:"collected_unix"`
	PostCount     int    `db:"post_count"`
}

type RunPost struct {
	RunID       string  `db:"run_id"`
	Rank        int     `db:"post_rank"`
	PostID      string  `db:"post_id"`
	Title       string  `db:"title"`
	Author      string  `db:"author"`
	Selftext    string  `db:"selftext"`
	Score       int     `db:"score"`
	NumComments int     `db:"num_comments"`
	CreatedUTC  float64 `db:"created_utc"`
	Permalink   string  `db:"permalink"`
	Category    string  `db:"category"`
}

// NewRun flattens a collection into archive rows. Every post is archived with
// its chapter, filtered or not.
func NewRun(c *models.Collection) (Run, []RunPost) {
	run := Run{
		ID:            c.RunID.String(),
		Subreddit:     c.Subreddit,
		Term:          c.Term,
		CollectedUnix: c.CollectedAt.Unix(),
		PostCount:     len(c.Posts),
	}

	posts := make([]RunPost, 0, len(c.Posts))
	for i, envelope := range c.Posts {
		p := envelope.Data
		posts = append(posts, RunPost{
			RunID:       run.ID,
			Rank:        i + 1,
			PostID:      p.ID,
			Title:       p.Title,
			Author:      p.Author,
			Selftext:    p.Selftext,
			Score:       p.Score,
			NumComments: p.NumComments,
			CreatedUTC:  p.CreatedUTC,
			Permalink:   p.Permalink,
			Category:    string(matchers.Categorize(p.Title, content.Clean(p.Selftext))),
		})
	}
	return run, posts
}
