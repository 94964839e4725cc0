// Package publisher holds the per-platform publish adapters behind a
// uniform contract. Adapters are stateless: everything they need arrives
// with the call.
package publisher

import (
	"context"

	"github.com/maheshrc27/postpilot/internal/transfer"
)

// Credentials are the decrypted tokens for one connected account.
// AccessToken is the OAuth2 bearer; Twitter media uploads additionally
// need the OAuth 1.0a pair.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	OAuth1Token  string
	OAuth1Secret string
	// Platform-side account id (IG user id, LinkedIn member id, ...).
	AccountID string
}

// Request carries the content and media for one publish attempt.
type Request struct {
	Content string
	Media   []transfer.MediaReference
}

// Publisher performs the platform-specific publish protocol and returns
// the platform-assigned post id. Errors should be *PlatformError so the
// worker can classify them.
type Publisher interface {
	Platform() string
	Publish(ctx context.Context, creds Credentials, req Request) (string, error)
}

// Registry maps platform enum values to their adapters. Adding a platform
// means registering one more Publisher; the worker never changes.
type Registry struct {
	publishers map[string]Publisher
}

func NewRegistry(publishers ...Publisher) *Registry {
	r := &Registry{publishers: make(map[string]Publisher, len(publishers))}
	for _, p := range publishers {
		r.publishers[p.Platform()] = p
	}
	return r
}

func (r *Registry) Lookup(platform string) (Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}
