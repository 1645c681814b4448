package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"

	"github.com/lib/pq"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mehulsinha/postpilot/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (string, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListByUserID(ctx context.Context, userID string, limit int, createdBefore *time.Time) ([]*models.Post, error)
	ListScheduledByUserID(ctx context.Context, userID string) ([]*models.Post, error)
	FindDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	ClaimForPublish(ctx context.Context, id string) (bool, error)
	ReleaseClaim(ctx context.Context, id string) error
	UpdateEnhanced(ctx context.Context, id, enhancedContent string, meta models.PostMetadata) error
	UpdateScheduled(ctx context.Context, id string, scheduledAt time.Time) error
	UpdatePublished(ctx context.Context, id string, results models.PublishResults) (models.PostStatus, error)
	UpdateStatus(ctx context.Context, id string, status models.PostStatus) error
	ResetToDraft(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	StatsByUserID(ctx context.Context, userID string) (*models.PostStats, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, original_content, enhanced_content, platforms, status, publish_now, scheduled_at, publish_results, metadata, created_at, updated_at, published_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*models.Post, error) {
	var post models.Post
	var platforms pq.StringArray
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.OriginalContent,
		&post.EnhancedContent,
		&platforms,
		&post.Status,
		&post.PublishNow,
		&post.ScheduledAt,
		&post.PublishResults,
		&post.Metadata,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	post.Platforms = []string(platforms)
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	query := `
		INSERT INTO posts (id, user_id, original_content, platforms, status, publish_now, publish_results, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb, $7)
		RETURNING id
	`

	meta := models.PostMetadata{CharacterCount: len(post.OriginalContent)}
	err = r.db.QueryRowContext(ctx, query,
		id,
		post.UserID,
		post.OriginalContent,
		pq.Array(post.Platforms),
		models.PostStatusDraft,
		post.PublishNow,
		meta,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID string, limit int, createdBefore *time.Time) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1`
	args := []interface{}{userID}
	if createdBefore != nil {
		query += ` AND created_at < $2`
		args = append(args, *createdBefore)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepository) ListScheduledByUserID(ctx context.Context, userID string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 AND status = $2 ORDER BY scheduled_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// FindDue returns every scheduled post whose due time has passed. It is a pure
// read; callers must claim each post before dispatching it. No ordering is
// guaranteed.
func (r *postRepository) FindDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 AND scheduled_at <= $2`
	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ClaimForPublish conditionally moves a post from scheduled to publishing.
// It returns false when another dispatcher already holds the claim or the
// post left the scheduled state.
func (r *postRepository) ClaimForPublish(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = now()
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseClaim puts a claimed post back to scheduled, for dispatchers that
// claimed a post and then decided not to publish it.
func (r *postRepository) ReleaseClaim(ctx context.Context, id string) error {
	query := `UPDATE posts SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, id, models.PostStatusPublishing)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *postRepository) UpdateEnhanced(ctx context.Context, id, enhancedContent string, meta models.PostMetadata) error {
	query := `
		UPDATE posts
		SET enhanced_content = $1,
			status = $2,
			metadata = $3,
			updated_at = now()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, enhancedContent, models.PostStatusEnhanced, meta, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateScheduled(ctx context.Context, id string, scheduledAt time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_at = $2,
			publish_now = false,
			updated_at = now()
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, scheduledAt, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpdatePublished records a completed publish attempt. The post becomes
// published only when every result succeeded; an empty result set counts as a
// failure. publishedAt is set because an attempt has now completed either way.
func (r *postRepository) UpdatePublished(ctx context.Context, id string, results models.PublishResults) (models.PostStatus, error) {
	status := models.PostStatusFailed
	if results.AllSuccessful() {
		status = models.PostStatusPublished
	}

	query := `
		UPDATE posts
		SET status = $1,
			publish_results = $2,
			scheduled_at = NULL,
			published_at = now(),
			updated_at = now()
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, results, id)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return status, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id string, status models.PostStatus) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = now()
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ResetToDraft is the cancel transition: back to draft, schedule cleared,
// publish_now raised so the client can offer an immediate publish.
func (r *postRepository) ResetToDraft(ctx context.Context, id string) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_at = NULL,
			publish_now = true,
			updated_at = now()
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusDraft, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) StatsByUserID(ctx context.Context, userID string) (*models.PostStats, error) {
	query := `SELECT status, COUNT(*) FROM posts WHERE user_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var stats models.PostStats
	for rows.Next() {
		var status models.PostStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		stats.Total += count
		switch status {
		case models.PostStatusDraft:
			stats.Draft = count
		case models.PostStatusEnhanced:
			stats.Enhanced = count
		case models.PostStatusScheduled, models.PostStatusPublishing:
			stats.Scheduled += count
		case models.PostStatusPublished:
			stats.Published = count
		case models.PostStatusFailed:
			stats.Failed = count
		}
	}
	return &stats, rows.Err()
}

func collectPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
