package models

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SocialAccount is a cached projection of a remote workspace account. The
// remote API exposes two identifier shapes for the same account: a numeric id
// used by legacy endpoints and a UUID used by current ones. Both are kept and
// reconciled through AccountRef.
type SocialAccount struct {
	ID            int64         `db:"id" json:"id"`
	AccountID     sql.NullInt64 `db:"account_id" json:"account_id"`
	AccountUUID   string        `db:"account_uuid" json:"account_uuid"`
	AccountName   string        `db:"account_name" json:"account_name"`
	Username      string        `db:"account_username" json:"account_username"`
	Platform      string        `db:"platform" json:"platform"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	LastCheckedAt sql.NullTime  `db:"last_checked_at" json:"last_checked_at"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// AccountRef holds both identifier shapes for one remote account.
type AccountRef struct {
	LegacyID int64
	UUID     string
}

var ErrNoAccountRef = errors.New("account has neither uuid nor numeric id")

// Value returns the identifier to send to the remote API: the UUID when
// present and well formed, the numeric id otherwise.
func (r AccountRef) Value() (any, error) {
	if r.UUID != "" {
		if _, err := uuid.Parse(r.UUID); err != nil {
			return nil, err
		}
		return r.UUID, nil
	}
	if r.LegacyID > 0 {
		return r.LegacyID, nil
	}
	return nil, ErrNoAccountRef
}

// Ref builds the dual-shape reference for this cached account.
func (a *SocialAccount) Ref() AccountRef {
	ref := AccountRef{UUID: a.AccountUUID}
	if a.AccountID.Valid {
		ref.LegacyID = a.AccountID.Int64
	}
	return ref
}
