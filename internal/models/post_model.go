package models

import (
	"database/sql"
	"time"
)

// ScheduledPost is the unit of work for the dispatch pipeline. MediaURLs,
// MediaFilenames and MediaSizes are parallel arrays and must stay
// index-aligned. ScheduledFor is stored and compared in UTC; Timezone is a
// display label only and never participates in comparisons.
type ScheduledPost struct {
	ID              string         `db:"id" json:"id"`
	UserID          int64          `db:"user_id" json:"user_id"`
	SocialAccountID int64          `db:"social_account_id" json:"social_account_id"`
	AccountUUID     string         `db:"account_uuid" json:"account_uuid"`
	AccountID       sql.NullInt64  `db:"account_id" json:"account_id"`
	Caption         string         `db:"caption" json:"caption"`
	PostType        string         `db:"post_type" json:"post_type"`
	MediaURLs       []string       `db:"media_urls" json:"media_urls"`
	MediaFilenames  []string       `db:"media_filenames" json:"media_filenames"`
	MediaSizes      []int64        `db:"media_sizes" json:"media_sizes"`
	ScheduledFor    time.Time      `db:"scheduled_for" json:"scheduled_for"`
	Timezone        string         `db:"timezone" json:"timezone"`
	RemoteMediaIDs  []string       `db:"remote_media_ids" json:"remote_media_ids"`
	RemotePostUUID  sql.NullString `db:"remote_post_uuid" json:"remote_post_uuid"`
	RemoteMediaURL  sql.NullString `db:"remote_media_url" json:"remote_media_url"`
	Status          string         `db:"status" json:"status"`
	PreUploaded     bool           `db:"pre_uploaded" json:"pre_uploaded"`
	PreUploadAt     sql.NullTime   `db:"pre_upload_at" json:"pre_upload_at"`
	PublishedAt     sql.NullTime   `db:"published_at" json:"published_at"`
	ErrorMessage    sql.NullString `db:"error_message" json:"error_message"`
	RetryCount      int            `db:"retry_count" json:"retry_count"`
	MaxRetries      int            `db:"max_retries" json:"max_retries"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusPending       = "PENDING"
	PostStatusMediaUploaded = "MEDIA_UPLOADED"
	PostStatusPublished     = "PUBLISHED"
	PostStatusFailed        = "FAILED"
	PostStatusCancelled     = "CANCELLED"
)

const (
	PostTypeReel  = "reel"
	PostTypeStory = "story"
	PostTypePost  = "post"
)

// CanCancel reports whether user cancellation is legal from the current
// status. Cancellation is never performed by the dispatch loop.
func (p *ScheduledPost) CanCancel() bool {
	return p.Status == PostStatusPending || p.Status == PostStatusMediaUploaded
}

// CanRetry reports whether an operator reset back to PENDING is legal.
func (p *ScheduledPost) CanRetry() bool {
	return p.Status == PostStatusFailed
}

func ValidPostType(t string) bool {
	switch t {
	case PostTypeReel, PostTypeStory, PostTypePost:
		return true
	}
	return false
}
