package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postpilot/internal/credentials"
	"github.com/maheshrc27/postpilot/internal/health"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publisher"
	"github.com/maheshrc27/postpilot/internal/repository"
	"go.uber.org/ratelimit"
)

// Outcome is the explicit retry contract between the worker and the
// broker: the broker decides redelivery purely from this.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryableFailure
	OutcomeTerminalFailure
)

// CredentialResolver is what the worker needs from the credentials
// package.
type CredentialResolver interface {
	Resolve(ctx context.Context, accountID int64) (*models.SocialAccount, publisher.Credentials, error)
}

// StatusRecomputer recomputes and persists a post's aggregate status.
type StatusRecomputer interface {
	Recompute(ctx context.Context, postID int64) (string, error)
}

// Worker pulls publish jobs off the queue and drives one delivery per
// job: mark publishing, resolve credentials, dispatch to the platform
// adapter, record the terminal state, recompute the aggregate.
type Worker struct {
	targets    repository.PostTargetRepository
	resolver   CredentialResolver
	registry   *publisher.Registry
	aggregator StatusRecomputer
	limiter    ratelimit.Limiter
	metrics    *health.Metrics
}

func NewWorker(
	targets repository.PostTargetRepository,
	resolver CredentialResolver,
	registry *publisher.Registry,
	aggregator StatusRecomputer,
	ratePerSecond int,
	metrics *health.Metrics) *Worker {
	return &Worker{
		targets:    targets,
		resolver:   resolver,
		registry:   registry,
		aggregator: aggregator,
		limiter:    ratelimit.New(ratePerSecond),
		metrics:    metrics,
	}
}

// HandlePublishTask is the asynq handler. It translates the worker's
// Outcome into broker semantics: nil acks, a plain error retries,
// SkipRetry archives without redelivery.
func (w *Worker) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed payload: %v: %w", err, asynq.SkipRetry)
	}

	// Global job-start limiter, shared across the worker's concurrency.
	w.limiter.Take()

	w.metrics.JobStarted()
	outcome, err := w.Process(ctx, payload)
	w.metrics.JobFinished(outcome == OutcomeSuccess)

	switch outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeTerminalFailure:
		return fmt.Errorf("target %d: %v: %w", payload.TargetID, err, asynq.SkipRetry)
	default:
		return fmt.Errorf("target %d: %w", payload.TargetID, err)
	}
}

// Process runs one delivery attempt. Safe to re-enter on redelivery: a
// target that already published is acked without touching the platform
// again.
func (w *Worker) Process(ctx context.Context, payload PublishPayload) (Outcome, error) {
	target, err := w.targets.GetByID(ctx, payload.TargetID)
	if err != nil {
		return OutcomeRetryableFailure, fmt.Errorf("loading target: %w", err)
	}
	if target == nil {
		// The post (and its targets) were deleted after enqueue.
		return OutcomeTerminalFailure, fmt.Errorf("target %d no longer exists", payload.TargetID)
	}

	if target.Status == models.TargetStatusPublished {
		slog.Info("target already published, skipping redelivery",
			"target_id", target.ID, "platform_post_id", target.PlatformPostID)
		return OutcomeSuccess, nil
	}

	// Written before the adapter call so a crash mid-call is observably
	// in flight rather than silently pending.
	if err := w.targets.MarkPublishing(ctx, target.ID); err != nil {
		return OutcomeRetryableFailure, fmt.Errorf("marking target publishing: %w", err)
	}

	account, creds, err := w.resolver.Resolve(ctx, payload.SocialAccountID)
	if err != nil {
		return w.fail(ctx, target, err, !credentials.NonRetryable(err))
	}

	pub, ok := w.registry.Lookup(account.Platform)
	if !ok {
		return w.fail(ctx, target, fmt.Errorf("no publisher registered for platform %q", account.Platform), false)
	}

	platformPostID, err := pub.Publish(ctx, creds, publisher.Request{
		Content: payload.Content,
		Media:   payload.Media,
	})
	if err != nil {
		slog.Info("publish attempt failed",
			"target_id", target.ID,
			"platform", account.Platform,
			"class", string(publisher.Classify(err)),
			"error", err.Error())
		return w.fail(ctx, target, err, platformRetryable(err))
	}

	if err := w.targets.MarkPublished(ctx, target.ID, platformPostID, time.Now().UTC()); err != nil {
		// The platform post exists but the write failed; retry so the
		// redelivery's already-published guard can settle the record.
		return OutcomeRetryableFailure, fmt.Errorf("marking target published: %w", err)
	}

	w.recompute(ctx, target.PostID)

	slog.Info("target published",
		"target_id", target.ID,
		"platform", account.Platform,
		"platform_post_id", platformPostID)
	return OutcomeSuccess, nil
}

// fail records the failed attempt on the target, recomputes the post's
// aggregate, and reports whether the broker should redeliver. Failures
// are persisted per attempt so exhausted retries are never silently
// dropped.
func (w *Worker) fail(ctx context.Context, target *models.PostTarget, cause error, retryable bool) (Outcome, error) {
	if err := w.targets.MarkFailed(ctx, target.ID, cause.Error()); err != nil {
		slog.Error("failed to record target failure", "target_id", target.ID, "error", err)
	}

	w.recompute(ctx, target.PostID)

	if retryable {
		return OutcomeRetryableFailure, cause
	}
	return OutcomeTerminalFailure, cause
}

func (w *Worker) recompute(ctx context.Context, postID int64) {
	if _, err := w.aggregator.Recompute(ctx, postID); err != nil {
		slog.Error("failed to recompute post status", "post_id", postID, "error", err)
	}
}

// platformRetryable: adapters mark auth and validation failures
// non-retryable; anything else (rate limits, transient, unknown) is
// worth another attempt under the backoff curve.
func platformRetryable(err error) bool {
	var pe *publisher.PlatformError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return true
}
