// Package status derives a post's aggregate status from its targets.
package status

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
)

// Aggregate computes a post's overall status from its target statuses.
// The precedence order is deliberate: full or partial success dominates
// failure, so a post with one published target reads as published no
// matter how many siblings failed.
func Aggregate(targetStatuses []string) string {
	if len(targetStatuses) == 0 {
		return models.PostStatusScheduled
	}

	var published, failed, publishing int
	for _, s := range targetStatuses {
		switch s {
		case models.TargetStatusPublished:
			published++
		case models.TargetStatusFailed:
			failed++
		case models.TargetStatusPublishing:
			publishing++
		}
	}

	switch {
	case published == len(targetStatuses):
		return models.PostStatusPublished
	case failed > 0 && published > 0:
		return models.PostStatusPublished
	case failed > 0 && published == 0:
		return models.PostStatusFailed
	case publishing > 0:
		return models.PostStatusPublishing
	default:
		return models.PostStatusScheduled
	}
}

// Recomputer re-reads a post's targets and persists the aggregate status.
// The worker calls it after every target transition.
type Recomputer struct {
	posts   repository.PostRepository
	targets repository.PostTargetRepository
}

func NewRecomputer(posts repository.PostRepository, targets repository.PostTargetRepository) *Recomputer {
	return &Recomputer{posts: posts, targets: targets}
}

func (r *Recomputer) Recompute(ctx context.Context, postID int64) (string, error) {
	targets, err := r.targets.ListByPostID(ctx, postID)
	if err != nil {
		return "", fmt.Errorf("listing targets for post %d: %w", postID, err)
	}

	statuses := make([]string, 0, len(targets))
	for _, t := range targets {
		statuses = append(statuses, t.Status)
	}

	aggregate := Aggregate(statuses)
	if err := r.posts.UpdateStatus(ctx, aggregate, postID); err != nil {
		return "", fmt.Errorf("updating status for post %d: %w", postID, err)
	}

	return aggregate, nil
}
