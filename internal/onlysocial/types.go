package onlysocial

import (
	"encoding/json"
	"fmt"
)

// Media is the response of a media upload. The API is inconsistent about the
// id type (string on some workspaces, number on others), so it is kept as a
// json.Number and converted on demand.
type Media struct {
	ID        json.Number `json:"id"`
	UUID      string      `json:"uuid"`
	Name      string      `json:"name"`
	MimeType  string      `json:"mime_type"`
	Type      string      `json:"type"`
	URL       string      `json:"url"`
	ThumbURL  string      `json:"thumb_url"`
	IsVideo   bool        `json:"is_video"`
	CreatedAt string      `json:"created_at"`
}

// Post is the response of a post creation.
type Post struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	HexColor string `json:"hex_color"`
}

// ScheduleResult is the response of the schedule/publish call.
type ScheduleResult struct {
	Success       bool   `json:"success"`
	ScheduledAt   string `json:"scheduled_at"`
	NeedsApproval bool   `json:"needs_approval"`
}

// Account is one workspace account as reported by the remote API. Both
// identifier shapes are present in the payload.
type Account struct {
	ID         int64  `json:"id"`
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Provider   string `json:"provider"`
	Authorized bool   `json:"authorized"`
	CreatedAt  string `json:"created_at"`
}

// APIError carries the remote status and body for a non-2xx response.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("onlysocial %s failed: %d - %s", e.Operation, e.StatusCode, e.Body)
}

type postContent struct {
	Body  string  `json:"body"`
	Media []int64 `json:"media"`
	URL   string  `json:"url"`
}

type postVersion struct {
	AccountID  int            `json:"account_id"`
	IsOriginal bool           `json:"is_original"`
	Content    []postContent  `json:"content"`
	Options    map[string]any `json:"options"`
}

type createPostPayload struct {
	Accounts            []any         `json:"accounts"`
	Versions            []postVersion `json:"versions"`
	Tags                []string      `json:"tags"`
	Date                string        `json:"date"`
	Time                string        `json:"time"`
	UntilDate           *string       `json:"until_date"`
	UntilTime           string        `json:"until_time"`
	RepeatFrequency     *string       `json:"repeat_frequency"`
	ShortLinkProvider   *string       `json:"short_link_provider"`
	ShortLinkProviderID *string       `json:"short_link_provider_id"`
}

type schedulePayload struct {
	PostNow bool `json:"postNow"`
}

type accountsResponse struct {
	Data []Account `json:"data"`
}
