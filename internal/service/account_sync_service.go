package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/onlysocial"
	"github.com/mrusso/postdeck/internal/repository"
)

// AccountSyncService refreshes the local social account cache from the
// workspace account list. Accounts that disappear from the remote are marked
// inactive rather than deleted, so posts referencing them fail with a clear
// message instead of a dangling id.
type AccountSyncService interface {
	Sync(ctx context.Context) (int, error)
	List(ctx context.Context) ([]*models.SocialAccount, error)
	Remove(ctx context.Context, id int64) error
}

type accountSyncService struct {
	ac     repository.SocialAccountRepository
	client onlysocial.Client
}

func NewAccountSyncService(ac repository.SocialAccountRepository, client onlysocial.Client) AccountSyncService {
	return &accountSyncService{ac: ac, client: client}
}

func (s *accountSyncService) Sync(ctx context.Context) (int, error) {
	remote, err := s.client.ListAccounts(ctx)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	now := time.Now()
	seen := make(map[string]struct{}, len(remote))

	for _, acc := range remote {
		seen[acc.UUID] = struct{}{}

		sa := &models.SocialAccount{
			AccountUUID: acc.UUID,
			AccountName: acc.Name,
			Username:    acc.Username,
			Platform:    acc.Provider,
			IsActive:    acc.Authorized,
		}
		if acc.ID != 0 {
			sa.AccountID = sql.NullInt64{Int64: acc.ID, Valid: true}
		}

		id, err := s.ac.Upsert(ctx, sa)
		if err != nil {
			slog.Info(err.Error())
			return 0, err
		}
		if err := s.ac.MarkChecked(ctx, id, acc.Authorized, now); err != nil {
			slog.Info(err.Error())
			return 0, err
		}
	}

	cached, err := s.ac.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, sa := range cached {
		if _, ok := seen[sa.AccountUUID]; ok {
			continue
		}
		if err := s.ac.MarkChecked(ctx, sa.ID, false, now); err != nil {
			slog.Info(err.Error())
			return 0, err
		}
	}

	return len(remote), nil
}

func (s *accountSyncService) List(ctx context.Context) ([]*models.SocialAccount, error) {
	return s.ac.List(ctx)
}

// Remove drops a cached account entirely. Used when an account was connected
// by mistake; a vanished-but-valid account should stay cached as inactive and
// come back through Sync instead.
func (s *accountSyncService) Remove(ctx context.Context, id int64) error {
	err := s.ac.Remove(ctx, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
