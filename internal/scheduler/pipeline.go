package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/onlysocial"
	"github.com/mrusso/postdeck/internal/repository"
)

const leaseName = "scheduler"

// ErrLeaseHeld is returned when another invocation holds the scheduler lease.
var ErrLeaseHeld = errors.New("scheduler lease is held by another invocation")

// PostError is one failed post in a run summary.
type PostError struct {
	PostID  string `json:"post_id"`
	Message string `json:"message"`
}

// RunSummary reports what a single pipeline invocation did.
type RunSummary struct {
	Processed  int         `json:"processed"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []PostError `json:"errors,omitempty"`
}

// Pipeline drives the two post phases: uploading media ahead of the schedule
// slot, then creating and publishing the remote post when the slot arrives.
// Run is safe to invoke from overlapping triggers; a database lease keeps a
// single invocation active.
type Pipeline struct {
	posts      repository.PostRepository
	accounts   repository.SocialAccountRepository
	leases     repository.LeaseRepository
	client     onlysocial.Client
	selector   *Selector
	dispatcher *Dispatcher
	clock      Clock
	cfg        config.Scheduler
}

func NewPipeline(
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	leases repository.LeaseRepository,
	client onlysocial.Client,
	selector *Selector,
	dispatcher *Dispatcher,
	clock Clock,
	cfg config.Scheduler,
) *Pipeline {
	return &Pipeline{
		posts:      posts,
		accounts:   accounts,
		leases:     leases,
		client:     client,
		selector:   selector,
		dispatcher: dispatcher,
		clock:      clock,
		cfg:        cfg,
	}
}

// Run executes one full invocation: acquire the lease, pre-upload media for
// upcoming posts, publish due posts, release the lease. Per-post failures are
// recorded on the post and collected in the summary; they never abort the
// batch.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	holder, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	now := p.clock.Now().UTC()
	acquired, err := p.leases.Acquire(ctx, leaseName, holder, now, p.cfg.LeaseTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrLeaseHeld
	}
	defer func() {
		if err := p.leases.Release(context.WithoutCancel(ctx), leaseName, holder); err != nil {
			slog.Info(err.Error())
		}
	}()

	summary := &RunSummary{}

	due, err := p.selector.DueForPreUpload(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, post := range due {
		summary.Processed++
		if err := p.preUpload(ctx, post); err != nil {
			p.fail(ctx, summary, post, err)
		} else {
			summary.Successful++
		}
	}

	now = p.clock.Now().UTC()
	publishable, err := p.selector.DueForPublishing(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, post := range publishable {
		summary.Processed++
		if err := p.publish(ctx, post, now); err != nil {
			p.fail(ctx, summary, post, err)
		} else {
			summary.Successful++
		}
	}

	return summary, nil
}

// preUpload pushes the post's media to the remote library and advances the
// post to MEDIA_UPLOADED. Uploads resume after the last saved remote id, so a
// partially uploaded post never re-uploads what already succeeded.
func (p *Pipeline) preUpload(ctx context.Context, post *models.ScheduledPost) error {
	account, err := p.lookupAccount(ctx, post)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return fmt.Errorf("account %s is not authorized", account.AccountUUID)
	}

	mediaIDs := append([]string(nil), post.RemoteMediaIDs...)
	for i := len(mediaIDs); i < len(post.MediaURLs); i++ {
		fileURL := post.MediaURLs[i]
		filename := fileURL
		if i < len(post.MediaFilenames) {
			filename = post.MediaFilenames[i]
		}

		var media *onlysocial.Media
		err := p.dispatcher.Do(ctx, "upload media", func(ctx context.Context) error {
			var err error
			media, err = p.client.UploadMedia(ctx, fileURL, filename)
			return err
		})
		if err != nil {
			return err
		}

		mediaIDs = append(mediaIDs, media.ID.String())
		if err := p.posts.SaveRemoteMediaIDs(ctx, post.ID, mediaIDs, p.clock.Now()); err != nil {
			return err
		}
	}

	var legacyID int64
	if account.AccountID.Valid {
		legacyID = account.AccountID.Int64
	}
	return p.posts.MarkMediaUploaded(ctx, post.ID, mediaIDs, legacyID, p.clock.Now())
}

// publish creates the remote post from the uploaded media and confirms it.
// Posts already past their slot are published immediately instead of being
// handed back to the remote scheduler with a date in the past.
func (p *Pipeline) publish(ctx context.Context, post *models.ScheduledPost, now time.Time) error {
	if len(post.RemoteMediaIDs) == 0 {
		return errors.New("no uploaded media to publish")
	}

	mediaIDs := make([]int64, 0, len(post.RemoteMediaIDs))
	for _, raw := range post.RemoteMediaIDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid remote media id %q: %w", raw, err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	ref := models.AccountRef{UUID: post.AccountUUID}
	if post.AccountID.Valid {
		ref.LegacyID = post.AccountID.Int64
	}

	var created *onlysocial.Post
	err := p.dispatcher.Do(ctx, "create post", func(ctx context.Context) error {
		var err error
		created, err = p.client.CreatePost(ctx, ref, post.Caption, mediaIDs, post.PostType, post.ScheduledFor)
		return err
	})
	if err != nil {
		return err
	}

	postNow := !post.ScheduledFor.After(now)
	err = p.dispatcher.Do(ctx, "schedule post", func(ctx context.Context) error {
		_, err := p.client.SchedulePost(ctx, created.UUID, postNow)
		return err
	})
	if err != nil {
		return err
	}

	return p.posts.MarkPublished(ctx, post.ID, created.UUID, p.clock.Now())
}

func (p *Pipeline) lookupAccount(ctx context.Context, post *models.ScheduledPost) (*models.SocialAccount, error) {
	if post.AccountUUID != "" {
		account, err := p.accounts.GetByUUID(ctx, post.AccountUUID)
		if err == nil && account != nil {
			return account, nil
		}
	}
	account, err := p.accounts.GetByID(ctx, post.SocialAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("social account %d not found", post.SocialAccountID)
	}
	return account, nil
}

// fail records the error on the post. The post only turns FAILED once its
// retry budget is spent; until then it stays eligible for the next run.
func (p *Pipeline) fail(ctx context.Context, summary *RunSummary, post *models.ScheduledPost, cause error) {
	summary.Failed++
	summary.Errors = append(summary.Errors, PostError{PostID: post.ID, Message: cause.Error()})

	terminal := post.RetryCount+1 >= post.MaxRetries
	if err := p.posts.RecordFailure(ctx, post.ID, cause.Error(), terminal, p.clock.Now()); err != nil {
		slog.Info(err.Error())
	}
}
