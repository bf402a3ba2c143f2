package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/repository"
)

type windowCapturingRepo struct {
	repository.PostRepository
	preUploadCutoff time.Time
	publishFrom     time.Time
	publishTo       time.Time
	limit           int
}

func (r *windowCapturingRepo) ListDueForPreUpload(ctx context.Context, cutoff time.Time, limit int) ([]*models.ScheduledPost, error) {
	r.preUploadCutoff = cutoff
	r.limit = limit
	return nil, nil
}

func (r *windowCapturingRepo) ListDueForPublishing(ctx context.Context, from, to time.Time, limit int) ([]*models.ScheduledPost, error) {
	r.publishFrom = from
	r.publishTo = to
	r.limit = limit
	return nil, nil
}

func TestSelectorPreUploadWindow(t *testing.T) {
	repo := &windowCapturingRepo{}
	s := NewSelector(repo, testSchedulerConfig())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := s.DueForPreUpload(context.Background(), now); err != nil {
		t.Fatal(err)
	}

	if want := now.Add(2 * time.Hour); !repo.preUploadCutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", repo.preUploadCutoff, want)
	}
	if repo.limit != 25 {
		t.Errorf("limit = %d, want the per-minute quota", repo.limit)
	}
}

func TestSelectorPublishWindow(t *testing.T) {
	repo := &windowCapturingRepo{}
	s := NewSelector(repo, testSchedulerConfig())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := s.DueForPublishing(context.Background(), now); err != nil {
		t.Fatal(err)
	}

	if want := now.Add(-2 * time.Hour); !repo.publishFrom.Equal(want) {
		t.Errorf("from = %v, want the recovery lookback %v", repo.publishFrom, want)
	}
	if want := now.Add(5 * time.Minute); !repo.publishTo.Equal(want) {
		t.Errorf("to = %v, want the publish grace %v", repo.publishTo, want)
	}
	if repo.limit != 25 {
		t.Errorf("limit = %d, want the per-minute quota", repo.limit)
	}
}
