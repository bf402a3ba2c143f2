package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/mrusso/postdeck/internal/models"
)

type SocialAccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	GetByUUID(ctx context.Context, accountUUID string) (*models.SocialAccount, error)
	List(ctx context.Context) ([]*models.SocialAccount, error)
	Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error)
	MarkChecked(ctx context.Context, id int64, active bool, now time.Time) error
	Remove(ctx context.Context, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const accountColumns = `id, account_id, account_uuid, account_name, account_username, platform,
	is_active, last_checked_at, created_at, updated_at`

func scanAccount(s interface{ Scan(dest ...any) error }) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := s.Scan(&sa.ID, &sa.AccountID, &sa.AccountUUID, &sa.AccountName, &sa.Username,
		&sa.Platform, &sa.IsActive, &sa.LastCheckedAt, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE id = $1`
	sa, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) GetByUUID(ctx context.Context, accountUUID string) (*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE account_uuid = $1`
	sa, err := scanAccount(r.db.QueryRowContext(ctx, query, accountUUID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) List(ctx context.Context) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts ORDER BY account_name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}
	return accounts, rows.Err()
}

// Upsert reconciles a remote account by UUID, refreshing the cached
// projection and both identifier shapes.
func (r *socialAccountRepository) Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts (
			account_id, account_uuid, account_name, account_username, platform,
			is_active, last_checked_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
		ON CONFLICT (account_uuid) DO UPDATE
		SET account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			account_username = EXCLUDED.account_username,
			platform = EXCLUDED.platform,
			is_active = EXCLUDED.is_active,
			last_checked_at = EXCLUDED.last_checked_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sa.AccountID, sa.AccountUUID, sa.AccountName, sa.Username, sa.Platform,
		sa.IsActive, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *socialAccountRepository) MarkChecked(ctx context.Context, id int64, active bool, now time.Time) error {
	query := `
		UPDATE social_accounts
		SET is_active = $2, last_checked_at = $3, updated_at = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, active, now.UTC())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
