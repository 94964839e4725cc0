// Package health is the worker's ops side channel: liveness, readiness,
// and a Prometheus view of the pipeline counters.
package health

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
)

const defaultQueue = "default"

type queueStats struct {
	Waiting int `json:"waiting"`
	Active  int `json:"active"`
	Failed  int `json:"failed"`
	Delayed int `json:"delayed"`
}

type Handler struct {
	inspector *asynq.Inspector
	metrics   *Metrics
}

func NewHandler(inspector *asynq.Inspector, metrics *Metrics) *Handler {
	return &Handler{inspector: inspector, metrics: metrics}
}

func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/metrics", h.Metrics)
}

func (h *Handler) queueInfo() (*queueStats, error) {
	info, err := h.inspector.GetQueueInfo(defaultQueue)
	if err != nil {
		return nil, err
	}
	return &queueStats{
		Waiting: info.Pending,
		Active:  info.Active,
		Failed:  info.Archived,
		Delayed: info.Scheduled,
	}, nil
}

func (h *Handler) Health(c *fiber.Ctx) error {
	snapshot := h.metrics.Snapshot()

	queue, err := h.queueInfo()
	if err != nil {
		// Broker unreachable: the pipeline is down.
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"redis":  "disconnected",
			"worker": snapshot,
		})
	}

	status := "healthy"
	if queue.Failed > 0 {
		status = "degraded"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": status,
		"redis":  "connected",
		"queue":  queue,
		"worker": snapshot,
	})
}

func (h *Handler) Ready(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ready": true})
}

// Metrics renders the counters in Prometheus text exposition format.
func (h *Handler) Metrics(c *fiber.Ctx) error {
	snapshot := h.metrics.Snapshot()

	var b strings.Builder
	writeMetric(&b, "worker_jobs_processed_total", "counter", "Publish jobs completed successfully.", float64(snapshot.JobsProcessed))
	writeMetric(&b, "worker_jobs_failed_total", "counter", "Publish job attempts that failed.", float64(snapshot.JobsFailed))
	writeMetric(&b, "worker_jobs_processing", "gauge", "Publish jobs currently executing.", float64(snapshot.Processing))
	if snapshot.LastJobAt != nil {
		writeMetric(&b, "worker_last_job_timestamp_seconds", "gauge", "Unix time of the last finished job.", float64(snapshot.LastJobAt.Unix()))
	}

	if queue, err := h.queueInfo(); err == nil {
		fmt.Fprintf(&b, "# HELP queue_jobs Jobs in the durable queue by state.\n")
		fmt.Fprintf(&b, "# TYPE queue_jobs gauge\n")
		fmt.Fprintf(&b, "queue_jobs{state=\"waiting\"} %d\n", queue.Waiting)
		fmt.Fprintf(&b, "queue_jobs{state=\"active\"} %d\n", queue.Active)
		fmt.Fprintf(&b, "queue_jobs{state=\"failed\"} %d\n", queue.Failed)
		fmt.Fprintf(&b, "queue_jobs{state=\"delayed\"} %d\n", queue.Delayed)
	}

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(b.String())
}

func writeMetric(b *strings.Builder, name, kind, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(b, "%s %g\n", name, value)
}
