package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maheshrc27/postpilot/internal/credentials"
	"github.com/maheshrc27/postpilot/internal/health"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTargetRepo struct {
	mock.Mock
}

func (m *mockTargetRepo) Create(ctx context.Context, tx *sql.Tx, target *models.PostTarget) (int64, error) {
	args := m.Called(ctx, tx, target)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTargetRepo) GetByID(ctx context.Context, id int64) (*models.PostTarget, error) {
	args := m.Called(ctx, id)
	if target, ok := args.Get(0).(*models.PostTarget); ok {
		return target, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTargetRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error) {
	args := m.Called(ctx, postID)
	if targets, ok := args.Get(0).([]*models.PostTarget); ok {
		return targets, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTargetRepo) MarkPublishing(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTargetRepo) MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	args := m.Called(ctx, id, platformPostID, publishedAt)
	return args.Error(0)
}

func (m *mockTargetRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	args := m.Called(ctx, id, errorMessage)
	return args.Error(0)
}

type stubResolver struct {
	account *models.SocialAccount
	creds   publisher.Credentials
	err     error
}

func (s *stubResolver) Resolve(ctx context.Context, accountID int64) (*models.SocialAccount, publisher.Credentials, error) {
	if s.err != nil {
		return nil, publisher.Credentials{}, s.err
	}
	return s.account, s.creds, nil
}

type stubRecomputer struct {
	status string
	calls  int
}

func (s *stubRecomputer) Recompute(ctx context.Context, postID int64) (string, error) {
	s.calls++
	return s.status, nil
}

type stubPublisher struct {
	platform string
	postID   string
	err      error
	calls    int
}

func (s *stubPublisher) Platform() string { return s.platform }

func (s *stubPublisher) Publish(ctx context.Context, creds publisher.Credentials, req publisher.Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.postID, nil
}

func newTestWorker(targets *mockTargetRepo, resolver *stubResolver, pub *stubPublisher, agg *stubRecomputer) *Worker {
	return NewWorker(targets, resolver, publisher.NewRegistry(pub), agg, 100, health.NewMetrics())
}

func pendingTarget(id, postID int64) *models.PostTarget {
	return &models.PostTarget{ID: id, PostID: postID, AccountID: 7, Status: models.TargetStatusPending}
}

func TestProcessPublishesPendingTarget(t *testing.T) {
	targets := new(mockTargetRepo)
	resolver := &stubResolver{
		account: &models.SocialAccount{ID: 7, Platform: models.PlatformTwitter, IsActive: true},
		creds:   publisher.Credentials{AccessToken: "token"},
	}
	pub := &stubPublisher{platform: models.PlatformTwitter, postID: "tw-123"}
	agg := &stubRecomputer{status: models.PostStatusPublished}

	targets.On("GetByID", mock.Anything, int64(11)).Return(pendingTarget(11, 3), nil)
	targets.On("MarkPublishing", mock.Anything, int64(11)).Return(nil)
	targets.On("MarkPublished", mock.Anything, int64(11), "tw-123", mock.Anything).Return(nil)

	w := newTestWorker(targets, resolver, pub, agg)
	outcome, err := w.Process(context.Background(), PublishPayload{PostID: 3, TargetID: 11, SocialAccountID: 7, Content: "hello"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, 1, agg.calls)
	targets.AssertExpectations(t)
}

func TestProcessRedeliveryOfPublishedTargetIsNoOp(t *testing.T) {
	targets := new(mockTargetRepo)
	pub := &stubPublisher{platform: models.PlatformTwitter, postID: "tw-123"}
	agg := &stubRecomputer{}

	published := &models.PostTarget{ID: 11, PostID: 3, Status: models.TargetStatusPublished, PlatformPostID: "tw-123"}
	targets.On("GetByID", mock.Anything, int64(11)).Return(published, nil)

	w := newTestWorker(targets, &stubResolver{}, pub, agg)
	outcome, err := w.Process(context.Background(), PublishPayload{PostID: 3, TargetID: 11})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)

	// No second platform post, no status churn.
	assert.Equal(t, 0, pub.calls)
	assert.Equal(t, 0, agg.calls)
	targets.AssertNotCalled(t, "MarkPublishing", mock.Anything, mock.Anything)
	targets.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessInactiveAccountIsTerminal(t *testing.T) {
	targets := new(mockTargetRepo)
	resolver := &stubResolver{err: fmt.Errorf("account 7: %w", credentials.ErrAccountInactive)}
	pub := &stubPublisher{platform: models.PlatformInstagram}
	agg := &stubRecomputer{status: models.PostStatusPublished}

	targets.On("GetByID", mock.Anything, int64(12)).Return(pendingTarget(12, 3), nil)
	targets.On("MarkPublishing", mock.Anything, int64(12)).Return(nil)
	targets.On("MarkFailed", mock.Anything, int64(12), mock.Anything).Return(nil)

	w := newTestWorker(targets, resolver, pub, agg)
	outcome, err := w.Process(context.Background(), PublishPayload{PostID: 3, TargetID: 12, SocialAccountID: 7})

	assert.Equal(t, OutcomeTerminalFailure, outcome)
	assert.ErrorIs(t, err, credentials.ErrAccountInactive)
	assert.Equal(t, 0, pub.calls)

	// The failure still updates the aggregate.
	assert.Equal(t, 1, agg.calls)
	targets.AssertExpectations(t)
}

func TestProcessMissingTargetIsTerminal(t *testing.T) {
	targets := new(mockTargetRepo)
	targets.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

	w := newTestWorker(targets, &stubResolver{}, &stubPublisher{platform: models.PlatformTwitter}, &stubRecomputer{})
	outcome, err := w.Process(context.Background(), PublishPayload{TargetID: 99})

	assert.Equal(t, OutcomeTerminalFailure, outcome)
	assert.Error(t, err)
}

func TestProcessPlatformErrorClassDecidesOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{
			"rate limit retries",
			publisher.Errorf(models.PlatformTwitter, "unexpected status code 429: too many requests"),
			OutcomeRetryableFailure,
		},
		{
			"auth failure is terminal",
			publisher.Errorf(models.PlatformTwitter, "authentication failed"),
			OutcomeTerminalFailure,
		},
		{
			"validation failure is terminal",
			publisher.ValidationErrorf(models.PlatformInstagram, "media required for instagram"),
			OutcomeTerminalFailure,
		},
		{
			"unclassified network error retries",
			errors.New("dial tcp: connection refused"),
			OutcomeRetryableFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := new(mockTargetRepo)
			resolver := &stubResolver{
				account: &models.SocialAccount{ID: 7, Platform: models.PlatformTwitter, IsActive: true},
				creds:   publisher.Credentials{AccessToken: "token"},
			}
			pub := &stubPublisher{platform: models.PlatformTwitter, err: tt.err}
			agg := &stubRecomputer{}

			targets.On("GetByID", mock.Anything, int64(11)).Return(pendingTarget(11, 3), nil)
			targets.On("MarkPublishing", mock.Anything, int64(11)).Return(nil)
			targets.On("MarkFailed", mock.Anything, int64(11), mock.Anything).Return(nil)

			w := newTestWorker(targets, resolver, pub, agg)
			outcome, err := w.Process(context.Background(), PublishPayload{PostID: 3, TargetID: 11, SocialAccountID: 7})

			assert.Equal(t, tt.want, outcome)
			assert.Error(t, err)
			assert.Equal(t, 1, agg.calls)
		})
	}
}

func TestProcessMarkPublishedFailureRetries(t *testing.T) {
	targets := new(mockTargetRepo)
	resolver := &stubResolver{
		account: &models.SocialAccount{ID: 7, Platform: models.PlatformTwitter, IsActive: true},
		creds:   publisher.Credentials{AccessToken: "token"},
	}
	pub := &stubPublisher{platform: models.PlatformTwitter, postID: "tw-123"}

	targets.On("GetByID", mock.Anything, int64(11)).Return(pendingTarget(11, 3), nil)
	targets.On("MarkPublishing", mock.Anything, int64(11)).Return(nil)
	targets.On("MarkPublished", mock.Anything, int64(11), "tw-123", mock.Anything).Return(errors.New("db down"))

	w := newTestWorker(targets, resolver, pub, &stubRecomputer{})
	outcome, err := w.Process(context.Background(), PublishPayload{PostID: 3, TargetID: 11, SocialAccountID: 7})

	// The redelivery's already-published guard settles the record.
	assert.Equal(t, OutcomeRetryableFailure, outcome)
	assert.Error(t, err)
}

func TestProcessUnknownPlatformIsTerminal(t *testing.T) {
	targets := new(mockTargetRepo)
	resolver := &stubResolver{
		account: &models.SocialAccount{ID: 7, Platform: "myspace", IsActive: true},
		creds:   publisher.Credentials{AccessToken: "token"},
	}
	agg := &stubRecomputer{}

	targets.On("GetByID", mock.Anything, int64(11)).Return(pendingTarget(11, 3), nil)
	targets.On("MarkPublishing", mock.Anything, int64(11)).Return(nil)
	targets.On("MarkFailed", mock.Anything, int64(11), mock.Anything).Return(nil)

	w := newTestWorker(targets, resolver, &stubPublisher{platform: models.PlatformTwitter}, agg)
	outcome, err := w.Process(context.Background(), PublishPayload{PostID: 3, TargetID: 11, SocialAccountID: 7})

	assert.Equal(t, OutcomeTerminalFailure, outcome)
	assert.Error(t, err)
}
