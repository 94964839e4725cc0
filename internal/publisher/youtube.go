package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTube publishing is a resumable video upload through the official API
// client; the post content becomes the video title.
type YoutubePublisher struct {
	client *http.Client
}

func NewYoutubePublisher(client *http.Client) *YoutubePublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &YoutubePublisher{client: client}
}

func (p *YoutubePublisher) Platform() string {
	return models.PlatformYoutube
}

func (p *YoutubePublisher) Publish(ctx context.Context, creds Credentials, req Request) (string, error) {
	var video *transfer.MediaReference
	for i := range req.Media {
		if req.Media[i].IsInline() || isVideoURL(req.Media[i].URL) {
			video = &req.Media[i]
			break
		}
	}
	if video == nil {
		return "", ValidationErrorf(models.PlatformYoutube, "video required: YouTube posts need a video file")
	}

	data, err := p.fetchMedia(ctx, *video)
	if err != nil {
		return "", err
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken})
	service, err := youtube.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return "", Errorf(models.PlatformYoutube, "creating YouTube client: %v", err)
	}

	title := req.Content
	if len(title) > 100 {
		title = title[:100]
	}

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: req.Content,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, upload)
	inserted, err := call.Media(bytes.NewReader(data)).Context(ctx).Do()
	if err != nil {
		return "", Errorf(models.PlatformYoutube, "uploading video: %v", err)
	}
	if inserted.Id == "" {
		return "", Errorf(models.PlatformYoutube, "no video ID returned")
	}

	return inserted.Id, nil
}

func (p *YoutubePublisher) fetchMedia(ctx context.Context, media transfer.MediaReference) ([]byte, error) {
	if media.IsInline() {
		data, err := base64.StdEncoding.DecodeString(media.Data)
		if err != nil {
			return nil, ValidationErrorf(models.PlatformYoutube, "invalid inline media encoding: %v", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.URL, nil)
	if err != nil {
		return nil, Errorf(models.PlatformYoutube, "creating media fetch request: %v", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Errorf(models.PlatformYoutube, "fetching video %s: %v", media.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(models.PlatformYoutube, "fetching video %s: status %d", media.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Errorf(models.PlatformYoutube, "reading video: %v", err)
	}
	return data, nil
}
