package repos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/kova98/insightgrep/data"
)

type RunRepo struct {
	db *sqlx.DB
}

func NewRunRepo(db *sqlx.DB) *RunRepo {
	return &RunRepo{db}
}

// SaveRun stores a run and its posts in one transaction.
func (r *RunRepo) SaveRun(ctx context.Context, run data.Run, posts []data.RunPost) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: begin: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (id, subreddit, term, collected_unix, post_count)
		VALUES (:id, :subreddit, :term, :collected_unix, :post_count)`
	if _, err := tx.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("save run: insert run: %w", err)
	}

	if len(posts) > 0 {
		query = `
			INSERT INTO run_posts (run_id, post_rank, post_id, title, author, selftext, score, num_comments, created_utc, permalink, category)
			VALUES (:run_id, :post_rank, :post_id, :title, :author, :selftext, :score, :num_comments, :created_utc, :permalink, :category)`
		if _, err := tx.NamedExecContext(ctx, query, posts); err != nil {
			return fmt.Errorf("save run: insert posts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit: %w", err)
	}
	return nil
}

func (r *RunRepo) GetRun(ctx context.Context, id string) (data.Run, error) {
	var run data.Run
	query := r.db.Rebind(`
		SELECT id, subreddit, term, collected_unix, post_count
		FROM runs
		WHERE id = ?`)
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return data.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// CategoryCounts reports how many posts of a run landed in each chapter.
func (r *RunRepo) CategoryCounts(ctx context.Context, runID string) (map[string]int, error) {
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	query := r.db.Rebind(`
		SELECT category, COUNT(*) AS count
		FROM run_posts
		WHERE run_id = ?
		GROUP BY category`)
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}
