package service

import (
	"context"
	"testing"
	"time"

	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/onlysocial"
	"github.com/mrusso/postdeck/internal/repository"
)

type syncAccountRepo struct {
	repository.SocialAccountRepository
	byUUID map[string]*models.SocialAccount
	nextID int64
	active map[int64]bool
}

func newSyncAccountRepo() *syncAccountRepo {
	return &syncAccountRepo{
		byUUID: make(map[string]*models.SocialAccount),
		active: make(map[int64]bool),
	}
}

func (s *syncAccountRepo) Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	if existing, ok := s.byUUID[sa.AccountUUID]; ok {
		sa.ID = existing.ID
	} else {
		s.nextID++
		sa.ID = s.nextID
	}
	s.byUUID[sa.AccountUUID] = sa
	return sa.ID, nil
}

func (s *syncAccountRepo) MarkChecked(ctx context.Context, id int64, active bool, now time.Time) error {
	s.active[id] = active
	return nil
}

func (s *syncAccountRepo) Remove(ctx context.Context, id int64) error {
	for uuid, sa := range s.byUUID {
		if sa.ID == id {
			delete(s.byUUID, uuid)
		}
	}
	delete(s.active, id)
	return nil
}

func (s *syncAccountRepo) List(ctx context.Context) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, sa := range s.byUUID {
		out = append(out, sa)
	}
	return out, nil
}

type syncClient struct {
	onlysocial.Client
	accounts []onlysocial.Account
}

func (c *syncClient) ListAccounts(ctx context.Context) ([]onlysocial.Account, error) {
	return c.accounts, nil
}

func TestSyncUpsertsRemoteAccounts(t *testing.T) {
	repo := newSyncAccountRepo()
	client := &syncClient{accounts: []onlysocial.Account{
		{ID: 42, UUID: "uuid-1", Name: "Brand", Username: "brand", Provider: "instagram", Authorized: true},
		{UUID: "uuid-2", Name: "Other", Provider: "facebook_page", Authorized: false},
	}}

	s := NewAccountSyncService(repo, client)
	count, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	first := repo.byUUID["uuid-1"]
	if first == nil {
		t.Fatal("uuid-1 not stored")
	}
	if !first.AccountID.Valid || first.AccountID.Int64 != 42 {
		t.Errorf("legacy id = %+v, want 42", first.AccountID)
	}
	if !repo.active[first.ID] {
		t.Error("authorized account should be marked active")
	}

	second := repo.byUUID["uuid-2"]
	if second == nil {
		t.Fatal("uuid-2 not stored")
	}
	if second.AccountID.Valid {
		t.Error("missing legacy id should stay NULL")
	}
	if repo.active[second.ID] {
		t.Error("unauthorized account should be marked inactive")
	}
}

func TestSyncDeactivatesVanishedAccounts(t *testing.T) {
	repo := newSyncAccountRepo()
	repo.Upsert(context.Background(), &models.SocialAccount{AccountUUID: "stale-uuid", IsActive: true})

	client := &syncClient{accounts: []onlysocial.Account{
		{UUID: "uuid-1", Authorized: true},
	}}

	s := NewAccountSyncService(repo, client)
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	stale := repo.byUUID["stale-uuid"]
	if repo.active[stale.ID] {
		t.Error("account missing from the remote list should be deactivated")
	}
}

func TestRemoveDropsCachedAccount(t *testing.T) {
	repo := newSyncAccountRepo()
	id, _ := repo.Upsert(context.Background(), &models.SocialAccount{AccountUUID: "uuid-1", IsActive: true})

	s := NewAccountSyncService(repo, &syncClient{})
	if err := s.Remove(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	if repo.byUUID["uuid-1"] != nil {
		t.Error("removed account should be gone from the cache")
	}
}
