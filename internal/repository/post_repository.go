package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/lib/pq"
	"github.com/mrusso/postdeck/internal/models"
)

// ErrConflict is returned when a conditional status transition matched no
// row, meaning the post was not in the expected state (already advanced,
// cancelled, or claimed elsewhere).
var ErrConflict = errors.New("post not in expected status")

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error
	GetByUser(ctx context.Context, id string, userID int64) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID int64, status string, from, to time.Time) ([]*models.ScheduledPost, error)
	ListDueForPreUpload(ctx context.Context, cutoff time.Time, limit int) ([]*models.ScheduledPost, error)
	ListDueForPublishing(ctx context.Context, from, to time.Time, limit int) ([]*models.ScheduledPost, error)
	SaveRemoteMediaIDs(ctx context.Context, id string, mediaIDs []string, now time.Time) error
	MarkMediaUploaded(ctx context.Context, id string, mediaIDs []string, accountID int64, now time.Time) error
	MarkPublished(ctx context.Context, id, postUUID string, now time.Time) error
	RecordFailure(ctx context.Context, id, message string, terminal bool, now time.Time) error
	Cancel(ctx context.Context, id string, userID int64, now time.Time) error
	ResetForRetry(ctx context.Context, id string, userID int64, now time.Time) error
	CountByStatus(ctx context.Context, userID int64) (map[string]int, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, social_account_id, account_uuid, account_id, caption, post_type,
	media_urls, media_filenames, media_sizes, scheduled_for, timezone,
	remote_media_ids, remote_post_uuid, remote_media_url, status,
	pre_uploaded, pre_upload_at, published_at, error_message,
	retry_count, max_retries, created_at, updated_at`

func scanPost(s interface{ Scan(dest ...any) error }) (*models.ScheduledPost, error) {
	var p models.ScheduledPost
	err := s.Scan(
		&p.ID, &p.UserID, &p.SocialAccountID, &p.AccountUUID, &p.AccountID, &p.Caption, &p.PostType,
		pq.Array(&p.MediaURLs), pq.Array(&p.MediaFilenames), pq.Array(&p.MediaSizes), &p.ScheduledFor, &p.Timezone,
		pq.Array(&p.RemoteMediaIDs), &p.RemotePostUUID, &p.RemoteMediaURL, &p.Status,
		&p.PreUploaded, &p.PreUploadAt, &p.PublishedAt, &p.ErrorMessage,
		&p.RetryCount, &p.MaxRetries, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error {
	query := `
		INSERT INTO scheduled_posts (
			id, user_id, social_account_id, account_uuid, account_id, caption, post_type,
			media_urls, media_filenames, media_sizes, scheduled_for, timezone,
			status, max_retries, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`

	args := []any{
		post.ID, post.UserID, post.SocialAccountID, post.AccountUUID, post.AccountID,
		post.Caption, post.PostType,
		pq.Array(post.MediaURLs), pq.Array(post.MediaFilenames), pq.Array(post.MediaSizes),
		post.ScheduledFor.UTC(), post.Timezone,
		models.PostStatusPending, post.MaxRetries, post.CreatedAt.UTC(),
	}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) GetByUser(ctx context.Context, id string, userID int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1 AND user_id = $2`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64, status string, from, to time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if !from.IsZero() {
		args = append(args, from.UTC())
		query += fmt.Sprintf(` AND scheduled_for >= $%d`, len(args))
	}
	if !to.IsZero() {
		args = append(args, to.UTC())
		query += fmt.Sprintf(` AND scheduled_for <= $%d`, len(args))
	}
	query += ` ORDER BY scheduled_for DESC`

	return r.list(ctx, query, args...)
}

// ListDueForPreUpload returns PENDING posts whose scheduled_for is at or
// before cutoff. No lower bound: arbitrarily overdue posts stay selectable,
// which is how missed invocations are recovered.
func (r *postRepository) ListDueForPreUpload(ctx context.Context, cutoff time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE status = $1 AND pre_uploaded = false AND scheduled_for <= $2
		ORDER BY scheduled_for ASC
		LIMIT $3`

	return r.list(ctx, query, models.PostStatusPending, cutoff.UTC(), limit)
}

// ListDueForPublishing returns MEDIA_UPLOADED posts whose scheduled_for falls
// in [from, to], earliest first.
func (r *postRepository) ListDueForPublishing(ctx context.Context, from, to time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE status = $1 AND scheduled_for >= $2 AND scheduled_for <= $3
		ORDER BY scheduled_for ASC
		LIMIT $4`

	return r.list(ctx, query, models.PostStatusMediaUploaded, from.UTC(), to.UTC(), limit)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
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

// SaveRemoteMediaIDs persists partial upload progress. Identifiers are only
// ever appended by the upload step, never reordered, so a later retry resumes
// from len(remote_media_ids).
func (r *postRepository) SaveRemoteMediaIDs(ctx context.Context, id string, mediaIDs []string, now time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET remote_media_ids = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, id, pq.Array(mediaIDs), now.UTC(), models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkMediaUploaded(ctx context.Context, id string, mediaIDs []string, accountID int64, now time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET remote_media_ids = $2,
			account_id = $3,
			pre_uploaded = true,
			pre_upload_at = $4,
			status = $5,
			error_message = NULL,
			updated_at = $4
		WHERE id = $1 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query, id, pq.Array(mediaIDs), accountID, now.UTC(),
		models.PostStatusMediaUploaded, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return oneRow(res)
}

func (r *postRepository) MarkPublished(ctx context.Context, id, postUUID string, now time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET remote_post_uuid = $2,
			status = $3,
			published_at = $4,
			error_message = NULL,
			updated_at = $4
		WHERE id = $1 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, postUUID, models.PostStatusPublished, now.UTC(),
		models.PostStatusMediaUploaded)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return oneRow(res)
}

// RecordFailure stores the failure reason and bumps retry_count. The status
// only flips to FAILED when terminal is true; otherwise the post keeps its
// working status and stays selectable on the next invocation.
func (r *postRepository) RecordFailure(ctx context.Context, id, message string, terminal bool, now time.Time) error {
	if len(message) > 500 {
		cut := 500
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}
	query := `
		UPDATE scheduled_posts
		SET error_message = $2,
			retry_count = retry_count + 1,
			status = CASE WHEN $3 THEN $4 ELSE status END,
			updated_at = $5
		WHERE id = $1 AND status IN ($6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, id, message, terminal, models.PostStatusFailed, now.UTC(),
		models.PostStatusPending, models.PostStatusMediaUploaded)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Cancel(ctx context.Context, id string, userID int64, now time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET status = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status IN ($5, $6)
	`
	res, err := r.db.ExecContext(ctx, query, id, userID, models.PostStatusCancelled, now.UTC(),
		models.PostStatusPending, models.PostStatusMediaUploaded)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return oneRow(res)
}

// ResetForRetry re-admits a FAILED post to the pipeline. The error message is
// cleared; retry_count is deliberately kept. pre_uploaded is cleared too so
// the post is selectable again; already uploaded media is not re-sent because
// remote_media_ids survives the reset.
func (r *postRepository) ResetForRetry(ctx context.Context, id string, userID int64, now time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET status = $3, pre_uploaded = false, error_message = NULL, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, userID, models.PostStatusPending, now.UTC(),
		models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return oneRow(res)
}

func (r *postRepository) CountByStatus(ctx context.Context, userID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM scheduled_posts WHERE user_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func oneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
