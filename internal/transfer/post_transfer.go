package transfer

// PostCreation is the request body for scheduling a post. Media arrays are
// parallel: urls[i], filenames[i] and sizes[i] describe the same file.
type PostCreation struct {
	AccountUUID    string   `json:"account_uuid"`
	AccountID      int64    `json:"account_id"`
	Caption        string   `json:"caption"`
	PostType       string   `json:"post_type"`
	MediaURLs      []string `json:"media_urls"`
	MediaFilenames []string `json:"media_filenames"`
	MediaSizes     []int64  `json:"media_sizes"`
	ScheduledFor   string   `json:"scheduled_for"`
	Timezone       string   `json:"timezone"`
}

// UploadedMedia describes a file stored in the media bucket.
type UploadedMedia struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// PostStats is one row of the per-status post counts.
type PostStats struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}
