package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/repository"
	"github.com/mrusso/postdeck/internal/transfer"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (string, error)
	List(ctx context.Context, userID int64, status string, from, to time.Time) ([]*models.ScheduledPost, error)
	PostInfo(ctx context.Context, postID string, userID int64) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, postID string, userID int64) error
	RetryFailed(ctx context.Context, postID string, userID int64) error
	Stats(ctx context.Context, userID int64) ([]transfer.PostStats, error)
	UploadMedia(ctx context.Context, userID int64, file *multipart.FileHeader) (*transfer.UploadedMedia, error)
}

type postService struct {
	db      *sql.DB
	pr      repository.PostRepository
	ac      repository.SocialAccountRepository
	spaces  *SpacesService
	cfg     config.Scheduler
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	spaces *SpacesService,
	cfg config.Scheduler) PostService {
	return &postService{
		db:     db,
		pr:     pr,
		ac:     ac,
		spaces: spaces,
		cfg:    cfg,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (string, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return "", err
	}
	if pc.Caption == "" {
		err := errors.New("caption cannot be empty")
		slog.Info(err.Error())
		return "", err
	}
	if len(pc.MediaURLs) == 0 {
		err := errors.New("no media provided for the post")
		slog.Info(err.Error())
		return "", err
	}
	if len(pc.MediaFilenames) != len(pc.MediaURLs) || len(pc.MediaSizes) != len(pc.MediaURLs) {
		err := errors.New("media urls, filenames and sizes must have the same length")
		slog.Info(err.Error())
		return "", err
	}

	scheduledFor, err := time.Parse(time.RFC3339, pc.ScheduledFor)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return "", err
	}

	account, err := s.resolveAccount(ctx, pc)
	if err != nil {
		return "", err
	}
	if !account.IsActive {
		err := fmt.Errorf("account %s is not authorized", account.AccountUUID)
		slog.Info(err.Error())
		return "", err
	}

	post := models.ScheduledPost{
		UserID:          userID,
		SocialAccountID: account.ID,
		AccountUUID:     account.AccountUUID,
		AccountID:       account.AccountID,
		Caption:         pc.Caption,
		PostType:        pc.PostType,
		MediaURLs:       pc.MediaURLs,
		MediaFilenames:  pc.MediaFilenames,
		MediaSizes:      pc.MediaSizes,
		ScheduledFor:    scheduledFor.UTC(),
		Timezone:        pc.Timezone,
		Status:          models.PostStatusPending,
		MaxRetries:      s.cfg.MaxRetries,
	}
	if post.PostType == "" {
		post.PostType = models.PostTypePost
	}
	if !models.ValidPostType(post.PostType) {
		err := fmt.Errorf("invalid post type %s", post.PostType)
		slog.Info(err.Error())
		return "", err
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	post.ID = id
	post.CreatedAt = time.Now().UTC()

	if err := s.pr.Create(ctx, nil, &post); err != nil {
		return "", fmt.Errorf("error creating post: %w", err)
	}

	return post.ID, nil
}

func (s *postService) resolveAccount(ctx context.Context, pc *transfer.PostCreation) (*models.SocialAccount, error) {
	if pc.AccountUUID != "" {
		account, err := s.ac.GetByUUID(ctx, pc.AccountUUID)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return account, nil
		}
	}
	if pc.AccountID != 0 {
		account, err := s.ac.GetByID(ctx, pc.AccountID)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return account, nil
		}
	}
	err := errors.New("social account does not exist")
	slog.Info(err.Error())
	return nil, err
}

func (s *postService) List(ctx context.Context, userID int64, status string, from, to time.Time) ([]*models.ScheduledPost, error) {
	return s.pr.ListByUserID(ctx, userID, status, from, to)
}

func (s *postService) PostInfo(ctx context.Context, postID string, userID int64) (*models.ScheduledPost, error) {
	post, err := s.pr.GetByUser(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errors.New("post not found")
	}
	return post, nil
}

func (s *postService) Cancel(ctx context.Context, postID string, userID int64) error {
	post, err := s.PostInfo(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !post.CanCancel() {
		return fmt.Errorf("post in status %s cannot be cancelled", post.Status)
	}
	return s.pr.Cancel(ctx, postID, userID, time.Now())
}

func (s *postService) RetryFailed(ctx context.Context, postID string, userID int64) error {
	post, err := s.PostInfo(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !post.CanRetry() {
		return fmt.Errorf("post in status %s cannot be retried", post.Status)
	}
	return s.pr.ResetForRetry(ctx, postID, userID, time.Now())
}

func (s *postService) Stats(ctx context.Context, userID int64) ([]transfer.PostStats, error) {
	counts, err := s.pr.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := make([]transfer.PostStats, 0, len(counts))
	for _, status := range []string{
		models.PostStatusPending,
		models.PostStatusMediaUploaded,
		models.PostStatusPublished,
		models.PostStatusFailed,
		models.PostStatusCancelled,
	} {
		if n, ok := counts[status]; ok {
			stats = append(stats, transfer.PostStats{Status: status, Count: n})
		}
	}
	return stats, nil
}

func (s *postService) UploadMedia(ctx context.Context, userID int64, file *multipart.FileHeader) (*transfer.UploadedMedia, error) {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, fmt.Errorf("unsupported file type: %w", err)
	}
	if _, ok := allowedTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("media/%d/%s.%s", userID, id, fileType.Extension)

	if err := s.spaces.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	return &transfer.UploadedMedia{
		URL:      s.spaces.PublicURL(key),
		Filename: file.Filename,
		Size:     int64(len(fileBytes)),
		MimeType: fileType.MIME.Value,
	}, nil
}
