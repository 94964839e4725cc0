package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postpilot/internal/credentials"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
)

// TokenRefreshJob proactively refreshes tokens expiring soon so publish
// jobs rarely hit the expired-token path. Platforms without a refresher
// (LinkedIn) are skipped here; the resolver deactivates them on use.
type TokenRefreshJob struct {
	sr         repository.SocialAccountRepository
	refreshers map[string]credentials.Refresher
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, refreshers map[string]credentials.Refresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:         sr,
		refreshers: refreshers,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	deadline := time.Now().Add(30 * time.Minute)

	accounts, err := c.sr.ListExpiringBefore(ctx, deadline)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		refresher, ok := c.refreshers[acc.Platform]
		if !ok || acc.RefreshToken == "" {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount, refresher credentials.Refresher) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := refresher.Refresh(ctx, acc); err != nil {
				slog.Info("unable to refresh tokens",
					"platform", acc.Platform,
					"account_id", acc.ID,
					"error", err.Error())
			}
		}(acc, refresher)
	}

	wg.Wait()
}
