// Package queue owns the publish pipeline: the job payload, enqueueing
// against the durable broker, and the worker that processes deliveries.
package queue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

// TaskTypePublishPost is the only job type the pipeline consumes: publish
// one target of one post.
const TaskTypePublishPost = "post-publishing"

// ScheduleGraceWindow: a scheduled time this far in the past (or less)
// still publishes immediately instead of being rejected.
const ScheduleGraceWindow = time.Minute

// PublishPayload is the unit of work for one target.
type PublishPayload struct {
	PostID          int64                     `json:"post_id"`
	UserID          int64                     `json:"user_id"`
	TargetID        int64                     `json:"target_id"`
	SocialAccountID int64                     `json:"social_account_id"`
	Content         string                    `json:"content"`
	Media           []transfer.MediaReference `json:"media,omitempty"`
}

// Scheduler enqueues publish jobs, immediately or delayed.
type Scheduler struct {
	client      *asynq.Client
	maxAttempts int
}

func NewScheduler(client *asynq.Client, maxAttempts int) *Scheduler {
	return &Scheduler{client: client, maxAttempts: maxAttempts}
}

func (s *Scheduler) EnqueueNow(payload PublishPayload) error {
	return s.enqueue(payload, 0)
}

// EnqueueAt schedules the job for when. Past or near-past times collapse
// to immediate execution.
func (s *Scheduler) EnqueueAt(payload PublishPayload, when time.Time) error {
	return s.enqueue(payload, DelayUntil(when, time.Now()))
}

func (s *Scheduler) enqueue(payload PublishPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	opts := []asynq.Option{asynq.MaxRetry(s.maxAttempts - 1)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	if _, err := s.client.Enqueue(task, opts...); err != nil {
		return err
	}

	slog.Info("publish job enqueued",
		"post_id", payload.PostID,
		"target_id", payload.TargetID,
		"delay", delay.String())
	return nil
}

// DelayUntil computes the queue delay for a scheduled time. Anything due
// now or earlier runs immediately; the broker never schedules into the
// past.
func DelayUntil(when, now time.Time) time.Duration {
	delay := when.Sub(now)
	if delay <= 0 {
		return 0
	}
	return delay
}

// RetryDelay is the broker's backoff curve: exponential from 30s, capped
// at 15m, monotonically increasing until the cap.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := 30 * time.Second << uint(n)
	if delay > 15*time.Minute || delay <= 0 {
		return 15 * time.Minute
	}
	return delay
}
