package publisher

import (
	"context"
	"net/http"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const (
	tiktokVideoInitURL = "https://open.tiktokapis.com/v2/post/publish/video/init/"
	tiktokPhotoInitURL = "https://open.tiktokapis.com/v2/post/publish/content/init/"
)

// TikTok publishes by handing the platform a URL to pull from; one video
// or a set of photos per post.
type TiktokPublisher struct {
	client *http.Client
}

func NewTiktokPublisher(client *http.Client) *TiktokPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &TiktokPublisher{client: client}
}

func (p *TiktokPublisher) Platform() string {
	return models.PlatformTiktok
}

func (p *TiktokPublisher) Publish(ctx context.Context, creds Credentials, req Request) (string, error) {
	if len(req.Media) == 0 {
		return "", ValidationErrorf(models.PlatformTiktok, "media required: TikTok posts need a video or photos")
	}

	if len(req.Media) == 1 && isVideoURL(req.Media[0].URL) {
		return p.publishVideo(ctx, creds.AccessToken, req)
	}
	return p.publishPhotos(ctx, creds.AccessToken, req)
}

func (p *TiktokPublisher) publishVideo(ctx context.Context, accessToken string, req Request) (string, error) {
	payload := transfer.TiktokVideoPublishRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:                 req.Content,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: req.Media[0].URL,
		},
	}

	return p.initPublish(ctx, accessToken, tiktokVideoInitURL, payload)
}

func (p *TiktokPublisher) publishPhotos(ctx context.Context, accessToken string, req Request) (string, error) {
	photos := make([]string, 0, len(req.Media))
	for _, media := range req.Media {
		if isVideoURL(media.URL) {
			return "", ValidationErrorf(models.PlatformTiktok, "mixed media: TikTok photo posts cannot include videos")
		}
		photos = append(photos, media.URL)
	}

	payload := transfer.TiktokPhotoPublishRequest{
		PostInfo: transfer.TiktokPhotoPostInfo{
			Title:        req.Content,
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
			AutoAddMusic: true,
		},
		SourceInfo: transfer.TiktokPhotoSourceInfo{
			Source:      "PULL_FROM_URL",
			PhotoImages: photos,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}

	return p.initPublish(ctx, accessToken, tiktokPhotoInitURL, payload)
}

func (p *TiktokPublisher) initPublish(ctx context.Context, accessToken, initURL string, payload interface{}) (string, error) {
	var result transfer.TiktokPublishResponse
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	if err := doJSON(ctx, p.client, http.MethodPost, initURL, headers, payload, &result); err != nil {
		return "", Errorf(models.PlatformTiktok, "initializing publish: %v", err)
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return "", Errorf(models.PlatformTiktok, "publish rejected: %s (%s)", result.Error.Message, result.Error.Code)
	}
	if result.Data.PublishID == "" {
		return "", Errorf(models.PlatformTiktok, "no publish ID returned")
	}

	return result.Data.PublishID, nil
}
