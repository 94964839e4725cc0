package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const (
	instagramGraphURL = "https://graph.facebook.com/v21.0"

	// Video containers process asynchronously; poll every 2s for up to
	// a minute before giving up.
	containerPollInterval = 2 * time.Second
	containerPollAttempts = 30

	carouselMaxItems = 10
)

type InstagramPublisher struct {
	client *http.Client
}

func NewInstagramPublisher(client *http.Client) *InstagramPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &InstagramPublisher{client: client}
}

func (p *InstagramPublisher) Platform() string {
	return models.PlatformInstagram
}

func (p *InstagramPublisher) Publish(ctx context.Context, creds Credentials, req Request) (string, error) {
	// Instagram rejects text-only posts; refuse before any network call.
	if len(req.Media) == 0 {
		return "", ValidationErrorf(models.PlatformInstagram, "media required: Instagram does not support text-only posts")
	}
	if len(req.Media) > carouselMaxItems {
		return "", ValidationErrorf(models.PlatformInstagram, "too many media items: Instagram carousels allow at most %d", carouselMaxItems)
	}

	igUserID, err := p.resolveBusinessAccount(ctx, creds.AccessToken)
	if err != nil {
		return "", err
	}

	var containerID string
	if len(req.Media) == 1 {
		containerID, err = p.createContainer(ctx, igUserID, creds.AccessToken, req.Media[0], req.Content, false)
	} else {
		containerID, err = p.createCarousel(ctx, igUserID, creds.AccessToken, req)
	}
	if err != nil {
		return "", err
	}

	return p.publishContainer(ctx, igUserID, containerID, creds.AccessToken)
}

// resolveBusinessAccount walks page listing -> linked business account,
// failing descriptively at whichever step comes up empty.
func (p *InstagramPublisher) resolveBusinessAccount(ctx context.Context, accessToken string) (string, error) {
	var pages struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}

	listURL := fmt.Sprintf("%s/me/accounts?access_token=%s", instagramGraphURL, url.QueryEscape(accessToken))
	if err := doJSON(ctx, p.client, http.MethodGet, listURL, nil, nil, &pages); err != nil {
		return "", Errorf(models.PlatformInstagram, "listing connected pages: %v", err)
	}
	if len(pages.Data) == 0 {
		return "", Errorf(models.PlatformInstagram, "no Facebook pages connected to this account")
	}

	var page struct {
		InstagramBusinessAccount struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	pageURL := fmt.Sprintf("%s/%s?fields=instagram_business_account&access_token=%s",
		instagramGraphURL, pages.Data[0].ID, url.QueryEscape(accessToken))
	if err := doJSON(ctx, p.client, http.MethodGet, pageURL, nil, nil, &page); err != nil {
		return "", Errorf(models.PlatformInstagram, "reading Instagram business account: %v", err)
	}
	if page.InstagramBusinessAccount.ID == "" {
		return "", Errorf(models.PlatformInstagram, "no Instagram business account linked to page %s", pages.Data[0].ID)
	}

	return page.InstagramBusinessAccount.ID, nil
}

func (p *InstagramPublisher) createContainer(ctx context.Context, igUserID, accessToken string, media transfer.MediaReference, caption string, carouselItem bool) (string, error) {
	payload := map[string]interface{}{
		"access_token": accessToken,
	}
	if carouselItem {
		payload["is_carousel_item"] = true
	} else {
		payload["caption"] = caption
	}

	video := isVideoURL(media.URL)
	if video {
		payload["video_url"] = media.URL
		payload["media_type"] = "REELS"
	} else {
		payload["image_url"] = media.URL
	}

	var result struct {
		ID string `json:"id"`
	}
	createURL := fmt.Sprintf("%s/%s/media", instagramGraphURL, igUserID)
	if err := doJSON(ctx, p.client, http.MethodPost, createURL, nil, payload, &result); err != nil {
		return "", Errorf(models.PlatformInstagram, "creating media container: %v", err)
	}
	if result.ID == "" {
		return "", Errorf(models.PlatformInstagram, "no container ID returned")
	}

	if video {
		if err := p.waitForContainer(ctx, result.ID, accessToken); err != nil {
			return "", err
		}
	}

	return result.ID, nil
}

func (p *InstagramPublisher) createCarousel(ctx context.Context, igUserID, accessToken string, req Request) (string, error) {
	children := make([]string, 0, len(req.Media))
	for _, media := range req.Media {
		childID, err := p.createContainer(ctx, igUserID, accessToken, media, "", true)
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      req.Content,
		"children":     children,
		"access_token": accessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	createURL := fmt.Sprintf("%s/%s/media", instagramGraphURL, igUserID)
	if err := doJSON(ctx, p.client, http.MethodPost, createURL, nil, payload, &result); err != nil {
		return "", Errorf(models.PlatformInstagram, "creating carousel container: %v", err)
	}
	if result.ID == "" {
		return "", Errorf(models.PlatformInstagram, "no carousel container ID returned")
	}

	return result.ID, nil
}

func (p *InstagramPublisher) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	statusURL := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		instagramGraphURL, containerID, url.QueryEscape(accessToken))

	for attempt := 0; attempt < containerPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(containerPollInterval):
		}

		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := doJSON(ctx, p.client, http.MethodGet, statusURL, nil, nil, &status); err != nil {
			return Errorf(models.PlatformInstagram, "checking container status: %v", err)
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return Errorf(models.PlatformInstagram, "container %s processing failed: %s", containerID, status.StatusCode)
		}
	}

	return Errorf(models.PlatformInstagram, "container %s not ready after %s", containerID,
		time.Duration(containerPollAttempts)*containerPollInterval)
}

func (p *InstagramPublisher) publishContainer(ctx context.Context, igUserID, containerID, accessToken string) (string, error) {
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	publishURL := fmt.Sprintf("%s/%s/media_publish", instagramGraphURL, igUserID)
	if err := doJSON(ctx, p.client, http.MethodPost, publishURL, nil, payload, &result); err != nil {
		return "", Errorf(models.PlatformInstagram, "publishing container: %v", err)
	}
	if result.ID == "" {
		return "", Errorf(models.PlatformInstagram, "no media ID returned from publish")
	}

	return result.ID, nil
}

// isVideoURL distinguishes image and video containers by file extension.
func isVideoURL(mediaURL string) bool {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp4", ".mov", ".m4v":
		return true
	}
	return false
}
