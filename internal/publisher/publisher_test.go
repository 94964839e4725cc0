package publisher

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingTransport fails the test if any request goes out.
type failingTransport struct {
	t *testing.T
}

func (f *failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.t.Fatalf("unexpected network call to %s", req.URL)
	return nil, errors.New("unreachable")
}

func noNetworkClient(t *testing.T) *http.Client {
	return &http.Client{Transport: &failingTransport{t: t}}
}

func TestInstagramRejectsTextOnlyBeforeNetwork(t *testing.T) {
	p := NewInstagramPublisher(noNetworkClient(t))

	_, err := p.Publish(context.Background(), Credentials{AccessToken: "tok"}, Request{Content: "hello"})
	require.Error(t, err)

	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ClassValidation, pe.Class)
	assert.Contains(t, pe.Message, "media required")
	assert.False(t, pe.Retryable())
}

func TestInstagramRejectsOversizedCarousel(t *testing.T) {
	p := NewInstagramPublisher(noNetworkClient(t))

	media := make([]transfer.MediaReference, 11)
	for i := range media {
		media[i] = transfer.MediaReference{URL: "https://cdn.example.com/a.jpg"}
	}

	_, err := p.Publish(context.Background(), Credentials{AccessToken: "tok"}, Request{Media: media})
	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ClassValidation, pe.Class)
}

func TestTiktokRejectsTextOnlyBeforeNetwork(t *testing.T) {
	p := NewTiktokPublisher(noNetworkClient(t))

	_, err := p.Publish(context.Background(), Credentials{AccessToken: "tok"}, Request{Content: "hello"})
	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ClassValidation, pe.Class)
}

func TestIsVideoURL(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.example.com/clip.mp4":           true,
		"https://cdn.example.com/clip.MOV":           true,
		"https://cdn.example.com/clip.m4v?sig=abc":   true,
		"https://cdn.example.com/photo.jpg":          false,
		"https://cdn.example.com/photo.png?h=200":    false,
		"https://cdn.example.com/no-extension":       false,
		"://not-a-url":                               false,
	}
	for url, want := range cases {
		assert.Equal(t, want, isVideoURL(url), url)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want Classification
	}{
		{"unexpected status code 429: too many requests", ClassRateLimited},
		{"Rate limit exceeded, retry later", ClassRateLimited},
		{"unexpected status code 401: token revoked", ClassAuthFailed},
		{"unexpected status code 403: forbidden", ClassAuthFailed},
		{"Authentication failed for user", ClassAuthFailed},
		{"unexpected status code 500: internal error", ClassUnknown},
		{"connection reset by peer", ClassUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(errors.New(tc.msg)), tc.msg)
	}
}

func TestClassifyPlatformErrorKeepsExplicitClass(t *testing.T) {
	// A wrapped validation error must not be reclassified by message.
	err := ValidationErrorf("twitter", "a tweet needs text or media")
	assert.Equal(t, ClassValidation, Classify(err))

	wrapped := &PlatformError{Platform: "tiktok", Message: "429 but transient", Class: ClassTransient}
	assert.Equal(t, ClassTransient, Classify(wrapped))
}

func TestRegistryLookup(t *testing.T) {
	ig := NewInstagramPublisher(noNetworkClient(t))
	tt := NewTiktokPublisher(noNetworkClient(t))
	registry := NewRegistry(ig, tt)

	p, ok := registry.Lookup("instagram")
	require.True(t, ok)
	assert.Equal(t, "instagram", p.Platform())

	_, ok = registry.Lookup("myspace")
	assert.False(t, ok)
}
