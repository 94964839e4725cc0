package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dghubble/oauth1"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const (
	twitterTweetURL  = "https://api.twitter.com/2/tweets"
	twitterUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
)

// TwitterPublisher posts through API v2 with the account's OAuth2 bearer
// token. Media uploads still live on the v1.1 endpoint, which only accepts
// OAuth 1.0a-signed requests, so the adapter keeps the app's consumer pair
// and signs those calls with the account's OAuth1 token.
type TwitterPublisher struct {
	client         *http.Client
	consumerKey    string
	consumerSecret string
}

func NewTwitterPublisher(client *http.Client, consumerKey, consumerSecret string) *TwitterPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &TwitterPublisher{
		client:         client,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
	}
}

func (p *TwitterPublisher) Platform() string {
	return models.PlatformTwitter
}

func (p *TwitterPublisher) Publish(ctx context.Context, creds Credentials, req Request) (string, error) {
	if req.Content == "" && len(req.Media) == 0 {
		return "", ValidationErrorf(models.PlatformTwitter, "a tweet needs text or media")
	}

	var mediaIDs []string
	for _, media := range req.Media {
		mediaID, err := p.uploadMedia(ctx, creds, media)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	payload := map[string]interface{}{
		"text": req.Content,
	}
	if len(mediaIDs) > 0 {
		payload["media"] = map[string]interface{}{"media_ids": mediaIDs}
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + creds.AccessToken}
	if err := doJSON(ctx, p.client, http.MethodPost, twitterTweetURL, headers, payload, &result); err != nil {
		return "", Errorf(models.PlatformTwitter, "creating tweet: %v", err)
	}
	if result.Data.ID == "" {
		return "", Errorf(models.PlatformTwitter, "no tweet ID returned")
	}

	return result.Data.ID, nil
}

// uploadMedia fetches the media bytes and pushes them through the v1.1
// simple upload, returning the media id for attachment.
func (p *TwitterPublisher) uploadMedia(ctx context.Context, creds Credentials, media transfer.MediaReference) (string, error) {
	if creds.OAuth1Token == "" || creds.OAuth1Secret == "" {
		return "", &PlatformError{
			Platform: models.PlatformTwitter,
			Message:  "authentication failed: media upload requires the account's OAuth1 credentials",
			Class:    ClassAuthFailed,
		}
	}

	data, err := p.fetchMedia(ctx, media)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(data))

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterUploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", Errorf(models.PlatformTwitter, "creating upload request: %v", err)
	}
	uploadReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	config := oauth1.NewConfig(p.consumerKey, p.consumerSecret)
	signer := config.Client(ctx, oauth1.NewToken(creds.OAuth1Token, creds.OAuth1Secret))

	resp, err := signer.Do(uploadReq)
	if err != nil {
		return "", Errorf(models.PlatformTwitter, "uploading media: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Errorf(models.PlatformTwitter, "reading upload response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", Errorf(models.PlatformTwitter, "media upload failed with status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", Errorf(models.PlatformTwitter, "parsing upload response: %v", err)
	}
	if result.MediaIDString == "" {
		return "", Errorf(models.PlatformTwitter, "no media ID returned from upload")
	}

	return result.MediaIDString, nil
}

func (p *TwitterPublisher) fetchMedia(ctx context.Context, media transfer.MediaReference) ([]byte, error) {
	if media.IsInline() {
		data, err := base64.StdEncoding.DecodeString(media.Data)
		if err != nil {
			return nil, ValidationErrorf(models.PlatformTwitter, "invalid inline media encoding: %v", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.URL, nil)
	if err != nil {
		return nil, Errorf(models.PlatformTwitter, "creating media fetch request: %v", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Errorf(models.PlatformTwitter, "fetching media %s: %v", media.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(models.PlatformTwitter, "fetching media %s: status %d", media.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Errorf(models.PlatformTwitter, "reading media %s: %v", media.URL, err)
	}
	return data, nil
}
