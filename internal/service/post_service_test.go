package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
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

func TestCreatePostValidation(t *testing.T) {
	svc := &postService{}

	tests := []struct {
		name string
		pc   *transfer.PostCreation
	}{
		{"nil submission", nil},
		{"no content and no media", &transfer.PostCreation{AccountIDs: []int64{1}}},
		{"no accounts selected", &transfer.PostCreation{Content: "hello"}},
		{"bad scheduled time format", &transfer.PostCreation{
			Content:       "hello",
			AccountIDs:    []int64{1},
			ScheduledTime: "June 1st at noon",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), 42, tt.pc)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreatePostRejectsForeignAccount(t *testing.T) {
	accounts := new(mockAccountRepo)
	accounts.On("CheckByUserID", mock.Anything, int64(9), int64(42)).Return(false, nil)

	svc := &postService{ac: accounts}

	_, err := svc.CreatePost(context.Background(), 42, &transfer.PostCreation{
		Content:    "hello",
		AccountIDs: []int64{9},
	})

	assert.ErrorIs(t, err, ErrValidation)
	accounts.AssertExpectations(t)
}

func TestParseScheduledTime(t *testing.T) {
	got, err := parseScheduledTime("2025-06-01T15:04")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC), *got)

	got, err = parseScheduledTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseScheduledTime("2025-06-01")
	assert.ErrorIs(t, err, ErrValidation)
}
