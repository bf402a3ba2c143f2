package onlysocial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/models"
)

const userAgent = "PostdeckScheduler/1.0"

// Client is the surface of the OnlySocial partner API consumed by the
// pipeline. All methods issue exactly one outbound request (UploadMedia also
// fetches the source bytes first); quota enforcement is the dispatcher's job,
// not the client's.
type Client interface {
	UploadMedia(ctx context.Context, fileURL, filename string) (*Media, error)
	CreatePost(ctx context.Context, ref models.AccountRef, caption string, mediaIDs []int64, postType string, when time.Time) (*Post, error)
	SchedulePost(ctx context.Context, postUUID string, postNow bool) (*ScheduleResult, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

type client struct {
	cfg  config.OnlySocial
	http *http.Client
}

func NewClient(cfg config.OnlySocial) Client {
	return &client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *client) workspaceURL(endpoint string) string {
	return fmt.Sprintf("%s/%s%s", c.cfg.BaseURL, c.cfg.WorkspaceUUID, endpoint)
}

// UploadMedia fetches the media bytes from its storage URL and forwards them
// to the workspace media library as a multipart upload.
func (c *client) UploadMedia(ctx context.Context, fileURL, filename string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download media: %s", res.Status)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, res.Body); err != nil {
		return nil, fmt.Errorf("failed to read media bytes: %w", err)
	}
	if err := writer.WriteField("alt_text", filename); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	upload, err := http.NewRequestWithContext(ctx, http.MethodPost, c.workspaceURL("/media"), &form)
	if err != nil {
		return nil, err
	}
	upload.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	upload.Header.Set("Accept", "application/json")
	upload.Header.Set("User-Agent", userAgent)
	upload.Header.Set("Content-Type", writer.FormDataContentType())

	var media Media
	if err := c.do(upload, "upload media", &media); err != nil {
		return nil, err
	}
	return &media, nil
}

// CreatePost creates (but does not publish) a post carrying previously
// uploaded media. The schedule instant is serialized as separate UTC date and
// time fields, which is what the remote API expects.
func (c *client) CreatePost(ctx context.Context, ref models.AccountRef, caption string, mediaIDs []int64, postType string, when time.Time) (*Post, error) {
	account, err := ref.Value()
	if err != nil {
		return nil, err
	}

	igType := postType
	if postType == models.PostTypeStory {
		igType = "story"
	}

	payload := createPostPayload{
		Accounts: []any{account},
		Versions: []postVersion{{
			AccountID:  0,
			IsOriginal: true,
			Content:    []postContent{{Body: caption, Media: mediaIDs, URL: ""}},
			Options: map[string]any{
				"instagram":        map[string]any{"type": igType, "collaborators": []string{}},
				"instagram_direct": map[string]any{"type": igType, "collaborators": []string{}},
				"facebook_page":    map[string]any{"type": "post"},
			},
		}},
		Tags:      []string{},
		Date:      when.UTC().Format("2006-01-02"),
		Time:      when.UTC().Format("15:04"),
		UntilTime: "",
	}

	req, err := c.jsonRequest(ctx, http.MethodPost, c.workspaceURL("/posts"), payload)
	if err != nil {
		return nil, err
	}

	var post Post
	if err := c.do(req, "create post", &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// SchedulePost confirms a created post. With postNow the remote publishes
// immediately, which is the recovery path for overdue posts.
func (c *client) SchedulePost(ctx context.Context, postUUID string, postNow bool) (*ScheduleResult, error) {
	req, err := c.jsonRequest(ctx, http.MethodPost, c.workspaceURL("/posts/schedule/"+postUUID), schedulePayload{PostNow: postNow})
	if err != nil {
		return nil, err
	}

	var result ScheduleResult
	if err := c.do(req, "schedule post", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) ListAccounts(ctx context.Context) ([]Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.workspaceURL("/accounts"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var resp accountsResponse
	if err := c.do(req, "list accounts", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *client) jsonRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *client) do(req *http.Request, operation string, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Operation: operation, StatusCode: res.StatusCode, Body: string(body)}
		slog.Info(apiErr.Error())
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse %s response: %w", operation, err)
		}
	}
	return nil
}
