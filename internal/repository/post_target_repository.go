package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
)

type PostTargetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, target *models.PostTarget) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PostTarget, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error)
	MarkPublishing(ctx context.Context, id int64) error
	MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
}

type postTargetRepository struct {
	db *sql.DB
}

func NewPostTargetRepository(db *sql.DB) PostTargetRepository {
	return &postTargetRepository{db: db}
}

func (r *postTargetRepository) Create(ctx context.Context, tx *sql.Tx, target *models.PostTarget) (int64, error) {
	query := `
		INSERT INTO post_targets (post_id, account_id, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, target.PostID, target.AccountID, models.TargetStatusPending).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, target.PostID, target.AccountID, models.TargetStatusPending).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postTargetRepository) GetByID(ctx context.Context, id int64) (*models.PostTarget, error) {
	query := `
		SELECT id, post_id, account_id, status, COALESCE(platform_post_id, ''), COALESCE(error_message, ''), published_at, created_at, updated_at
		FROM post_targets WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var t models.PostTarget
	err := row.Scan(&t.ID, &t.PostID, &t.AccountID, &t.Status, &t.PlatformPostID, &t.ErrorMessage, &t.PublishedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &t, nil
}

func (r *postTargetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error) {
	query := `
		SELECT id, post_id, account_id, status, COALESCE(platform_post_id, ''), COALESCE(error_message, ''), published_at, created_at, updated_at
		FROM post_targets WHERE post_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.PostTarget
	for rows.Next() {
		var t models.PostTarget
		err := rows.Scan(&t.ID, &t.PostID, &t.AccountID, &t.Status, &t.PlatformPostID, &t.ErrorMessage, &t.PublishedAt, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		targets = append(targets, &t)
	}
	return targets, rows.Err()
}

// MarkPublishing moves a target into publishing before the adapter call
// starts. Published targets stay published: redelivered jobs must not
// regress a finished delivery.
func (r *postTargetRepository) MarkPublishing(ctx context.Context, id int64) error {
	query := `
		UPDATE post_targets
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status <> $4
	`
	_, err := r.db.ExecContext(ctx, query, models.TargetStatusPublishing, time.Now(), id, models.TargetStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postTargetRepository) MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	query := `
		UPDATE post_targets
		SET status = $1,
			platform_post_id = $2,
			published_at = $3,
			error_message = NULL,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.TargetStatusPublished, platformPostID, publishedAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postTargetRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE post_targets
		SET status = $1,
			error_message = $2,
			updated_at = $3
		WHERE id = $4 AND status <> $5
	`
	_, err := r.db.ExecContext(ctx, query, models.TargetStatusFailed, errorMessage, time.Now(), id, models.TargetStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
