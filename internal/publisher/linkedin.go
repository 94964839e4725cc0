package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const linkedinAPIURL = "https://api.linkedin.com/v2"

// LinkedIn shares go through ugcPosts. Images are registered first
// (registerUpload), uploaded with a PUT to the returned URL, then the
// asset URNs are attached to the share.
type LinkedinPublisher struct {
	client *http.Client
}

func NewLinkedinPublisher(client *http.Client) *LinkedinPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &LinkedinPublisher{client: client}
}

func (p *LinkedinPublisher) Platform() string {
	return models.PlatformLinkedin
}

func (p *LinkedinPublisher) Publish(ctx context.Context, creds Credentials, req Request) (string, error) {
	if req.Content == "" && len(req.Media) == 0 {
		return "", ValidationErrorf(models.PlatformLinkedin, "a share needs text or media")
	}
	if creds.AccountID == "" {
		return "", ValidationErrorf(models.PlatformLinkedin, "missing member id for author URN")
	}

	author := "urn:li:person:" + creds.AccountID

	var assets []string
	for _, media := range req.Media {
		asset, err := p.uploadImage(ctx, creds.AccessToken, author, media)
		if err != nil {
			return "", err
		}
		assets = append(assets, asset)
	}

	shareContent := map[string]interface{}{
		"shareCommentary": map[string]string{"text": req.Content},
	}
	if len(assets) == 0 {
		shareContent["shareMediaCategory"] = "NONE"
	} else {
		shareContent["shareMediaCategory"] = "IMAGE"
		media := make([]map[string]interface{}, 0, len(assets))
		for _, asset := range assets {
			media = append(media, map[string]interface{}{
				"status": "READY",
				"media":  asset,
			})
		}
		shareContent["media"] = media
	}

	payload := map[string]interface{}{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var result struct {
		ID string `json:"id"`
	}
	headers := map[string]string{
		"Authorization":             "Bearer " + creds.AccessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}
	if err := doJSON(ctx, p.client, http.MethodPost, linkedinAPIURL+"/ugcPosts", headers, payload, &result); err != nil {
		return "", Errorf(models.PlatformLinkedin, "creating share: %v", err)
	}
	if result.ID == "" {
		return "", Errorf(models.PlatformLinkedin, "no share ID returned")
	}

	return result.ID, nil
}

func (p *LinkedinPublisher) uploadImage(ctx context.Context, accessToken, author string, media transfer.MediaReference) (string, error) {
	payload := map[string]interface{}{
		"registerUploadRequest": map[string]interface{}{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   author,
			"serviceRelationships": []map[string]string{
				{
					"relationshipType": "OWNER",
					"identifier":       "urn:li:userGeneratedContent",
				},
			},
		},
	}

	var registered struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	registerURL := linkedinAPIURL + "/assets?action=registerUpload"
	if err := doJSON(ctx, p.client, http.MethodPost, registerURL, headers, payload, &registered); err != nil {
		return "", Errorf(models.PlatformLinkedin, "registering upload: %v", err)
	}

	var uploadURL string
	for _, mechanism := range registered.Value.UploadMechanism {
		if mechanism.UploadURL != "" {
			uploadURL = mechanism.UploadURL
			break
		}
	}
	if registered.Value.Asset == "" || uploadURL == "" {
		return "", Errorf(models.PlatformLinkedin, "incomplete registerUpload response")
	}

	data, err := p.fetchMedia(ctx, media)
	if err != nil {
		return "", err
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", Errorf(models.PlatformLinkedin, "creating upload request: %v", err)
	}
	putReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(putReq)
	if err != nil {
		return "", Errorf(models.PlatformLinkedin, "uploading image: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", Errorf(models.PlatformLinkedin, "image upload failed with status %d: %s", resp.StatusCode, body)
	}

	return registered.Value.Asset, nil
}

func (p *LinkedinPublisher) fetchMedia(ctx context.Context, media transfer.MediaReference) ([]byte, error) {
	if media.IsInline() {
		data, err := base64.StdEncoding.DecodeString(media.Data)
		if err != nil {
			return nil, ValidationErrorf(models.PlatformLinkedin, "invalid inline media encoding: %v", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.URL, nil)
	if err != nil {
		return nil, Errorf(models.PlatformLinkedin, "creating media fetch request: %v", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Errorf(models.PlatformLinkedin, "fetching media %s: %v", media.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(models.PlatformLinkedin, "fetching media %s: status %d", media.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Errorf(models.PlatformLinkedin, "reading media: %v", err)
	}
	return data, nil
}
