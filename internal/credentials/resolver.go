// Package credentials turns a social-account id into usable plaintext
// tokens, enforcing the account's active flag and token expiry.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publisher"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

// All four are non-retryable for the target that hit them: each one needs
// user action (reconnect) or indicates corrupt state.
var (
	ErrAccountNotFound       = errors.New("social account not found")
	ErrAccountInactive       = errors.New("social account is inactive")
	ErrTokenExpiredNoRefresh = errors.New("access token expired and no refresh path exists")
	ErrDecryptToken          = errors.New("stored token could not be decrypted")
)

// Refresher refreshes one platform's tokens, persisting the new encrypted
// pair on the account row.
type Refresher interface {
	Refresh(ctx context.Context, account *models.SocialAccount) error
}

type Resolver struct {
	accounts   repository.SocialAccountRepository
	secret     []byte
	refreshers map[string]Refresher
	now        func() time.Time
}

func NewResolver(accounts repository.SocialAccountRepository, secret []byte, refreshers map[string]Refresher) *Resolver {
	if refreshers == nil {
		refreshers = map[string]Refresher{}
	}
	return &Resolver{
		accounts:   accounts,
		secret:     secret,
		refreshers: refreshers,
		now:        time.Now,
	}
}

// Resolve fetches the account and returns its decrypted credentials.
// Expired tokens are refreshed when the platform supports it; otherwise
// the account is deactivated (one-way) and the caller gets
// ErrTokenExpiredNoRefresh.
func (r *Resolver) Resolve(ctx context.Context, accountID int64) (*models.SocialAccount, publisher.Credentials, error) {
	account, err := r.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, publisher.Credentials{}, fmt.Errorf("fetching account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, publisher.Credentials{}, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
	}

	if !account.IsActive {
		return nil, publisher.Credentials{}, fmt.Errorf("account %d: %w", accountID, ErrAccountInactive)
	}

	if account.TokenExpired(r.now()) {
		account, err = r.refreshExpired(ctx, account)
		if err != nil {
			return nil, publisher.Credentials{}, err
		}
	}

	creds, err := r.decrypt(account)
	if err != nil {
		return nil, publisher.Credentials{}, err
	}

	return account, creds, nil
}

func (r *Resolver) refreshExpired(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error) {
	refresher, ok := r.refreshers[account.Platform]
	if account.RefreshToken == "" || !ok {
		// Reconnection requires user action; stop publishing on this
		// account until then.
		if err := r.accounts.Deactivate(ctx, account.ID); err != nil {
			slog.Error("failed to deactivate account", "account_id", account.ID, "error", err)
		}
		return nil, fmt.Errorf("account %d (%s): %w", account.ID, account.Platform, ErrTokenExpiredNoRefresh)
	}

	if err := refresher.Refresh(ctx, account); err != nil {
		return nil, fmt.Errorf("refreshing %s token for account %d: %w", account.Platform, account.ID, err)
	}

	refreshed, err := r.accounts.GetByID(ctx, account.ID)
	if err != nil || refreshed == nil {
		return nil, fmt.Errorf("re-fetching account %d after refresh: %w", account.ID, err)
	}
	return refreshed, nil
}

func (r *Resolver) decrypt(account *models.SocialAccount) (publisher.Credentials, error) {
	accessToken, err := utils.Decrypt(account.AccessToken, r.secret)
	if err != nil {
		// Corrupt blob or wrong key; retrying will not help.
		return publisher.Credentials{}, fmt.Errorf("account %d: %w", account.ID, ErrDecryptToken)
	}

	creds := publisher.Credentials{
		AccessToken: accessToken,
		AccountID:   account.AccountID,
	}

	if account.RefreshToken != "" {
		if creds.RefreshToken, err = utils.Decrypt(account.RefreshToken, r.secret); err != nil {
			return publisher.Credentials{}, fmt.Errorf("account %d refresh token: %w", account.ID, ErrDecryptToken)
		}
	}
	if account.OAuth1Token != "" {
		if creds.OAuth1Token, err = utils.Decrypt(account.OAuth1Token, r.secret); err != nil {
			return publisher.Credentials{}, fmt.Errorf("account %d oauth1 token: %w", account.ID, ErrDecryptToken)
		}
	}
	if account.OAuth1Secret != "" {
		if creds.OAuth1Secret, err = utils.Decrypt(account.OAuth1Secret, r.secret); err != nil {
			return publisher.Credentials{}, fmt.Errorf("account %d oauth1 secret: %w", account.ID, ErrDecryptToken)
		}
	}

	return creds, nil
}

// NonRetryable reports whether a resolver failure is permanent for the
// target (as opposed to an infrastructure error worth retrying).
func NonRetryable(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrTokenExpiredNoRefresh) ||
		errors.Is(err, ErrDecryptToken)
}
