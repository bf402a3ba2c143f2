package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/onlysocial"
	"github.com/mrusso/postdeck/internal/repository"
)

type failureRecord struct {
	postID   string
	message  string
	terminal bool
}

type stubPostRepo struct {
	repository.PostRepository
	preUpload   []*models.ScheduledPost
	publishable []*models.ScheduledPost

	savedProgress map[string][][]string
	mediaUploaded map[string][]string
	published     map[string]string
	failures      []failureRecord
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{
		savedProgress: make(map[string][][]string),
		mediaUploaded: make(map[string][]string),
		published:     make(map[string]string),
	}
}

func (s *stubPostRepo) ListDueForPreUpload(ctx context.Context, cutoff time.Time, limit int) ([]*models.ScheduledPost, error) {
	return s.preUpload, nil
}

func (s *stubPostRepo) ListDueForPublishing(ctx context.Context, from, to time.Time, limit int) ([]*models.ScheduledPost, error) {
	return s.publishable, nil
}

func (s *stubPostRepo) SaveRemoteMediaIDs(ctx context.Context, id string, mediaIDs []string, now time.Time) error {
	saved := append([]string(nil), mediaIDs...)
	s.savedProgress[id] = append(s.savedProgress[id], saved)
	return nil
}

func (s *stubPostRepo) MarkMediaUploaded(ctx context.Context, id string, mediaIDs []string, accountID int64, now time.Time) error {
	s.mediaUploaded[id] = append([]string(nil), mediaIDs...)
	return nil
}

func (s *stubPostRepo) MarkPublished(ctx context.Context, id, postUUID string, now time.Time) error {
	s.published[id] = postUUID
	return nil
}

func (s *stubPostRepo) RecordFailure(ctx context.Context, id, message string, terminal bool, now time.Time) error {
	s.failures = append(s.failures, failureRecord{postID: id, message: message, terminal: terminal})
	return nil
}

type stubAccountRepo struct {
	repository.SocialAccountRepository
	byUUID map[string]*models.SocialAccount
	byID   map[int64]*models.SocialAccount
}

func (s *stubAccountRepo) GetByUUID(ctx context.Context, accountUUID string) (*models.SocialAccount, error) {
	return s.byUUID[accountUUID], nil
}

func (s *stubAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return s.byID[id], nil
}

type stubLeaseRepo struct {
	held     bool
	acquired int
	released int
}

func (s *stubLeaseRepo) Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	if s.held {
		return false, nil
	}
	s.acquired++
	return true, nil
}

func (s *stubLeaseRepo) Release(ctx context.Context, name, holder string) error {
	s.released++
	return nil
}

type stubClient struct {
	nextMediaID int64
	uploads     []string
	uploadErr   error
	failURL     string

	created    []string
	createdRef models.AccountRef
	postNow    []bool
}

func (c *stubClient) UploadMedia(ctx context.Context, fileURL, filename string) (*onlysocial.Media, error) {
	if c.uploadErr != nil {
		return nil, c.uploadErr
	}
	if c.failURL != "" && fileURL == c.failURL {
		return nil, errors.New("upload rejected")
	}
	c.nextMediaID++
	c.uploads = append(c.uploads, fileURL)
	return &onlysocial.Media{ID: json.Number(strconv.FormatInt(c.nextMediaID, 10))}, nil
}

func (c *stubClient) CreatePost(ctx context.Context, ref models.AccountRef, caption string, mediaIDs []int64, postType string, when time.Time) (*onlysocial.Post, error) {
	c.createdRef = ref
	uuid := fmt.Sprintf("post-uuid-%d", len(c.created)+1)
	c.created = append(c.created, uuid)
	return &onlysocial.Post{ID: int64(len(c.created)), UUID: uuid}, nil
}

func (c *stubClient) SchedulePost(ctx context.Context, postUUID string, postNow bool) (*onlysocial.ScheduleResult, error) {
	c.postNow = append(c.postNow, postNow)
	return &onlysocial.ScheduleResult{Success: true}, nil
}

func (c *stubClient) ListAccounts(ctx context.Context) ([]onlysocial.Account, error) {
	return nil, nil
}

func testSchedulerConfig() config.Scheduler {
	return config.Scheduler{
		PreUploadHorizon: 2 * time.Hour,
		PublishWindow:    5 * time.Minute,
		RecoveryWindow:   2 * time.Hour,
		QuotaPerMinute:   25,
		MaxRetries:       3,
		RetryDelay:       5 * time.Second,
		LeaseTTL:         10 * time.Minute,
	}
}

func newTestPipeline(posts *stubPostRepo, accounts *stubAccountRepo, leases *stubLeaseRepo, client *stubClient) (*Pipeline, *fakeClock) {
	cfg := testSchedulerConfig()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(cfg.QuotaPerMinute, clock)
	dispatcher := NewDispatcher(limiter, clock, cfg.MaxRetries, cfg.RetryDelay)
	selector := NewSelector(posts, cfg)
	return NewPipeline(posts, accounts, leases, client, selector, dispatcher, clock, cfg), clock
}

func activeAccount() *models.SocialAccount {
	return &models.SocialAccount{
		ID:          1,
		AccountID:   sql.NullInt64{Int64: 42, Valid: true},
		AccountUUID: "acc-uuid-1",
		Platform:    "instagram",
		IsActive:    true,
	}
}

func pendingPost(id string, scheduledFor time.Time) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:              id,
		UserID:          1,
		SocialAccountID: 1,
		AccountUUID:     "acc-uuid-1",
		Caption:         "hello",
		PostType:        models.PostTypePost,
		MediaURLs:       []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
		MediaFilenames:  []string{"a.jpg", "b.jpg"},
		ScheduledFor:    scheduledFor,
		Status:          models.PostStatusPending,
		MaxRetries:      3,
	}
}

func uploadedPost(id string, scheduledFor time.Time) *models.ScheduledPost {
	p := pendingPost(id, scheduledFor)
	p.Status = models.PostStatusMediaUploaded
	p.AccountID = sql.NullInt64{Int64: 42, Valid: true}
	p.RemoteMediaIDs = []string{"55"}
	p.PreUploaded = true
	return p
}

func TestPipelinePreUploadsPendingPosts(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": activeAccount()}}
	leases := &stubLeaseRepo{}
	client := &stubClient{nextMediaID: 100}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	posts.preUpload = []*models.ScheduledPost{pendingPost("p1", clock.Now().Add(time.Hour))}

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Successful != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 successful", summary)
	}
	if len(client.uploads) != 2 {
		t.Fatalf("got %d uploads, want 2", len(client.uploads))
	}
	got := posts.mediaUploaded["p1"]
	want := []string{"101", "102"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("media ids = %v, want %v", got, want)
	}
	// Progress is persisted after every upload, not just at the end.
	if len(posts.savedProgress["p1"]) != 2 {
		t.Errorf("got %d progress saves, want 2", len(posts.savedProgress["p1"]))
	}
}

func TestPipelineResumesPartialUpload(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": activeAccount()}}
	leases := &stubLeaseRepo{}
	client := &stubClient{nextMediaID: 7}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)

	post := pendingPost("p1", clock.Now().Add(time.Hour))
	post.MediaURLs = []string{"u0", "u1", "u2"}
	post.MediaFilenames = []string{"f0", "f1", "f2"}
	post.RemoteMediaIDs = []string{"7"}
	posts.preUpload = []*models.ScheduledPost{post}

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(client.uploads) != 2 {
		t.Fatalf("got %d uploads, want 2 (first already done)", len(client.uploads))
	}
	if client.uploads[0] != "u1" || client.uploads[1] != "u2" {
		t.Errorf("uploaded %v, want [u1 u2]", client.uploads)
	}
	got := posts.mediaUploaded["p1"]
	want := []string{"7", "8", "9"}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("media ids = %v, want %v", got, want)
	}
}

func TestPipelinePublishesDuePosts(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": activeAccount()}}
	leases := &stubLeaseRepo{}
	client := &stubClient{}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	posts.publishable = []*models.ScheduledPost{uploadedPost("p1", clock.Now().Add(2*time.Minute))}

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Successful != 1 {
		t.Fatalf("summary = %+v, want 1 successful", summary)
	}
	if posts.published["p1"] != "post-uuid-1" {
		t.Errorf("published uuid = %q, want post-uuid-1", posts.published["p1"])
	}
	if len(client.postNow) != 1 || client.postNow[0] {
		t.Errorf("postNow = %v, want [false] for a future slot", client.postNow)
	}
	if client.createdRef.UUID != "acc-uuid-1" {
		t.Errorf("account ref uuid = %q, want acc-uuid-1", client.createdRef.UUID)
	}
}

func TestPipelinePublishesOverdueImmediately(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": activeAccount()}}
	leases := &stubLeaseRepo{}
	client := &stubClient{}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	posts.publishable = []*models.ScheduledPost{uploadedPost("p1", clock.Now().Add(-30*time.Minute))}

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(client.postNow) != 1 || !client.postNow[0] {
		t.Errorf("postNow = %v, want [true] for an overdue slot", client.postNow)
	}
}

func TestPipelineLeaseHeld(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{}
	leases := &stubLeaseRepo{held: true}
	client := &stubClient{}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	posts.preUpload = []*models.ScheduledPost{pendingPost("p1", clock.Now())}

	_, err := pipeline.Run(context.Background())
	if !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("got %v, want ErrLeaseHeld", err)
	}
	if len(client.uploads) != 0 {
		t.Errorf("no uploads expected while lease is held")
	}
}

func TestPipelineReleasesLease(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{}
	leases := &stubLeaseRepo{}
	client := &stubClient{}

	pipeline, _ := newTestPipeline(posts, accounts, leases, client)

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if leases.released != 1 {
		t.Errorf("lease released %d times, want 1", leases.released)
	}
}

func TestPipelineRecordsTransientFailure(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": activeAccount()}}
	leases := &stubLeaseRepo{}
	client := &stubClient{uploadErr: errors.New("remote unavailable")}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	posts.preUpload = []*models.ScheduledPost{pendingPost("p1", clock.Now().Add(time.Hour))}

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}
	if len(posts.failures) != 1 {
		t.Fatalf("got %d failure records, want 1", len(posts.failures))
	}
	if posts.failures[0].terminal {
		t.Error("first failure should not be terminal")
	}
}

func TestPipelineFailedPostDoesNotBlockBatch(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": activeAccount()}}
	leases := &stubLeaseRepo{}
	client := &stubClient{nextMediaID: 200, failURL: "https://cdn.example.com/broken.jpg"}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)

	broken := pendingPost("p1", clock.Now().Add(time.Hour))
	broken.MediaURLs = []string{"https://cdn.example.com/broken.jpg"}
	broken.MediaFilenames = []string{"broken.jpg"}
	posts.preUpload = []*models.ScheduledPost{broken, pendingPost("p2", clock.Now().Add(time.Hour))}

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Processed != 2 || summary.Successful != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 processed, 1 successful, 1 failed", summary)
	}
	if len(posts.failures) != 1 || posts.failures[0].postID != "p1" {
		t.Fatalf("failures = %+v, want a single failure for p1", posts.failures)
	}
	if _, ok := posts.mediaUploaded["p2"]; !ok {
		t.Error("p2 should still reach media uploaded after p1 fails")
	}
}

func TestPipelineTerminalFailureAfterRetryBudget(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": activeAccount()}}
	leases := &stubLeaseRepo{}
	client := &stubClient{uploadErr: errors.New("remote unavailable")}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	post := pendingPost("p1", clock.Now().Add(time.Hour))
	post.RetryCount = 2
	posts.preUpload = []*models.ScheduledPost{post}

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(posts.failures) != 1 || !posts.failures[0].terminal {
		t.Fatalf("failures = %+v, want one terminal failure", posts.failures)
	}
}

func TestPipelineRejectsInactiveAccount(t *testing.T) {
	account := activeAccount()
	account.IsActive = false

	posts := newStubPostRepo()
	accounts := &stubAccountRepo{byUUID: map[string]*models.SocialAccount{"acc-uuid-1": account}}
	leases := &stubLeaseRepo{}
	client := &stubClient{}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	posts.preUpload = []*models.ScheduledPost{pendingPost("p1", clock.Now().Add(time.Hour))}

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}
	if len(client.uploads) != 0 {
		t.Error("no uploads expected for an unauthorized account")
	}
}

func TestPipelinePublishWithoutMediaFails(t *testing.T) {
	posts := newStubPostRepo()
	accounts := &stubAccountRepo{}
	leases := &stubLeaseRepo{}
	client := &stubClient{}

	pipeline, clock := newTestPipeline(posts, accounts, leases, client)
	post := uploadedPost("p1", clock.Now())
	post.RemoteMediaIDs = nil
	posts.publishable = []*models.ScheduledPost{post}

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}
	if len(client.created) != 0 {
		t.Error("no remote post expected without media")
	}
}
