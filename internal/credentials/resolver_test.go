package credentials

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	args := m.Called(ctx, tx, sa)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	args := m.Called(ctx, id)
	if sa, ok := args.Get(0).(*models.SocialAccount); ok {
		return sa, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, userID)
	if accounts, ok := args.Get(0).([]*models.SocialAccount); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, deadline)
	if accounts, ok := args.Get(0).([]*models.SocialAccount); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	args := m.Called(ctx, accountID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountRepo) SetToken(ctx context.Context, id int64, sa *models.SocialAccount) error {
	args := m.Called(ctx, id, sa)
	return args.Error(0)
}

func (m *mockAccountRepo) SetOAuth1Token(ctx context.Context, id int64, token, secret string) error {
	args := m.Called(ctx, id, token, secret)
	return args.Error(0)
}

func (m *mockAccountRepo) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepo) Remove(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var testSecret = []byte("resolver-test-secret")

func encrypted(t *testing.T, plaintext string) string {
	t.Helper()
	blob, err := utils.Encrypt([]byte(plaintext), testSecret)
	require.NoError(t, err)
	return blob
}

func activeAccount(t *testing.T) *models.SocialAccount {
	return &models.SocialAccount{
		ID:          42,
		Platform:    models.PlatformTwitter,
		AccountID:   "tw-123",
		AccessToken: encrypted(t, "plain-access"),
		IsActive:    true,
	}
}

func TestResolveHappyPath(t *testing.T) {
	repo := new(mockAccountRepo)
	account := activeAccount(t)
	account.RefreshToken = encrypted(t, "plain-refresh")
	account.OAuth1Token = encrypted(t, "oauth1-token")
	account.OAuth1Secret = encrypted(t, "oauth1-secret")
	repo.On("GetByID", mock.Anything, int64(42)).Return(account, nil)

	resolver := NewResolver(repo, testSecret, nil)
	resolved, creds, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, account.ID, resolved.ID)
	assert.Equal(t, "plain-access", creds.AccessToken)
	assert.Equal(t, "plain-refresh", creds.RefreshToken)
	assert.Equal(t, "oauth1-token", creds.OAuth1Token)
	assert.Equal(t, "oauth1-secret", creds.OAuth1Secret)
	assert.Equal(t, "tw-123", creds.AccountID)
}

func TestResolveAccountNotFound(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("GetByID", mock.Anything, int64(7)).Return(nil, nil)

	resolver := NewResolver(repo, testSecret, nil)
	_, _, err := resolver.Resolve(context.Background(), 7)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.True(t, NonRetryable(err))
}

func TestResolveInactiveAccount(t *testing.T) {
	repo := new(mockAccountRepo)
	account := activeAccount(t)
	account.IsActive = false
	repo.On("GetByID", mock.Anything, int64(42)).Return(account, nil)

	resolver := NewResolver(repo, testSecret, nil)
	_, _, err := resolver.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.True(t, NonRetryable(err))
}

func TestResolveCorruptToken(t *testing.T) {
	repo := new(mockAccountRepo)
	account := activeAccount(t)
	account.AccessToken = "deadbeef"
	repo.On("GetByID", mock.Anything, int64(42)).Return(account, nil)

	resolver := NewResolver(repo, testSecret, nil)
	_, _, err := resolver.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrDecryptToken)
	assert.True(t, NonRetryable(err))
}

func TestResolveExpiredNoRefreshDeactivates(t *testing.T) {
	repo := new(mockAccountRepo)
	account := activeAccount(t)
	expiry := time.Now().Add(-time.Hour)
	account.TokenExpiresAt = &expiry
	repo.On("GetByID", mock.Anything, int64(42)).Return(account, nil)
	repo.On("Deactivate", mock.Anything, int64(42)).Return(nil)

	resolver := NewResolver(repo, testSecret, nil)
	_, _, err := resolver.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTokenExpiredNoRefresh)
	repo.AssertCalled(t, "Deactivate", mock.Anything, int64(42))
}

func TestResolveExpiredWithoutPlatformRefresherDeactivates(t *testing.T) {
	repo := new(mockAccountRepo)
	account := activeAccount(t)
	account.RefreshToken = encrypted(t, "refresh")
	expiry := time.Now().Add(-time.Minute)
	account.TokenExpiresAt = &expiry
	repo.On("GetByID", mock.Anything, int64(42)).Return(account, nil)
	repo.On("Deactivate", mock.Anything, int64(42)).Return(nil)

	// No refresher registered for twitter: treated as the no-refresh case.
	resolver := NewResolver(repo, testSecret, map[string]Refresher{})
	_, _, err := resolver.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTokenExpiredNoRefresh)
	repo.AssertCalled(t, "Deactivate", mock.Anything, int64(42))
}

type stubRefresher struct {
	refreshed bool
	repo      *mockAccountRepo
	t         *testing.T
}

func (s *stubRefresher) Refresh(ctx context.Context, account *models.SocialAccount) error {
	s.refreshed = true
	return nil
}

func TestResolveExpiredWithRefresher(t *testing.T) {
	repo := new(mockAccountRepo)
	expired := activeAccount(t)
	expired.RefreshToken = encrypted(t, "refresh")
	expiry := time.Now().Add(-time.Minute)
	expired.TokenExpiresAt = &expiry

	fresh := activeAccount(t)
	fresh.AccessToken = encrypted(t, "fresh-access")
	future := time.Now().Add(time.Hour)
	fresh.TokenExpiresAt = &future

	repo.On("GetByID", mock.Anything, int64(42)).Return(expired, nil).Once()
	repo.On("GetByID", mock.Anything, int64(42)).Return(fresh, nil).Once()

	refresher := &stubRefresher{repo: repo, t: t}
	resolver := NewResolver(repo, testSecret, map[string]Refresher{models.PlatformTwitter: refresher})

	_, creds, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, refresher.refreshed)
	assert.Equal(t, "fresh-access", creds.AccessToken)
	repo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}
