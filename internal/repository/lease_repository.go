package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// LeaseRepository implements an advisory run lease backed by a single table
// row. The dispatch pipeline claims the lease before touching any post so
// that overlapping trigger invocations cannot double-process a batch.
type LeaseRepository interface {
	Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, holder string) error
}

type leaseRepository struct {
	db *sql.DB
}

func NewLeaseRepository(db *sql.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

// Acquire claims the named lease until now+ttl. The claim succeeds when the
// lease does not exist, is expired, or is already held by the same holder.
func (r *leaseRepository) Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO scheduler_leases (name, holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		WHERE scheduler_leases.expires_at < $4 OR scheduler_leases.holder = $2
	`
	res, err := r.db.ExecContext(ctx, query, name, holder, now.UTC().Add(ttl), now.UTC())
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *leaseRepository) Release(ctx context.Context, name, holder string) error {
	query := `DELETE FROM scheduler_leases WHERE name = $1 AND holder = $2`
	_, err := r.db.ExecContext(ctx, query, name, holder)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
