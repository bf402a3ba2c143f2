package scheduler

import (
	"context"
	"time"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/repository"
)

// Selector computes the due sets for the two pipeline phases. All window math
// is done in UTC; the stored timezone is a display label and never shifts a
// comparison.
type Selector struct {
	posts repository.PostRepository
	cfg   config.Scheduler
}

func NewSelector(posts repository.PostRepository, cfg config.Scheduler) *Selector {
	return &Selector{posts: posts, cfg: cfg}
}

// DueForPreUpload returns pending posts scheduled up to the pre-upload
// horizon ahead of now. There is no lower bound: a post that slipped past its
// slot still gets its media uploaded. Results are capped at one minute's
// quota and ordered by schedule time ascending.
func (s *Selector) DueForPreUpload(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	cutoff := now.Add(s.cfg.PreUploadHorizon)
	return s.posts.ListDueForPreUpload(ctx, cutoff, s.cfg.QuotaPerMinute)
}

// DueForPublishing returns media-uploaded posts whose schedule time falls
// within the publish window: from the recovery lookback behind now up to the
// small grace ahead of it. The backward reach is what lets a missed
// invocation catch up on the next run.
func (s *Selector) DueForPublishing(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	from := now.Add(-s.cfg.RecoveryWindow)
	to := now.Add(s.cfg.PublishWindow)
	return s.posts.ListDueForPublishing(ctx, from, to, s.cfg.QuotaPerMinute)
}
