package transfer

// PostCreation is the submission-time shape of a post: the content, the
// accounts to fan out to, and the media going with it.
type PostCreation struct {
	Content       string           `json:"content"`
	ScheduledTime string           `json:"scheduled_time"`
	AccountIDs    []int64          `json:"account_ids"`
	Media         []MediaReference `json:"media"`
}

// MediaReference is a tagged variant: either a URL to already-hosted
// media, or inline base64 bytes with a MIME type. Exactly one side is set.
type MediaReference struct {
	URL      string `json:"url,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

func (m MediaReference) IsInline() bool {
	return m.URL == "" && m.Data != ""
}

// TargetDetail is the per-target view returned alongside a post, including
// the error message for failed deliveries.
type TargetDetail struct {
	TargetID       int64  `json:"target_id"`
	AccountID      int64  `json:"account_id"`
	Platform       string `json:"platform"`
	Status         string `json:"status"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}
