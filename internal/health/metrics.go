package health

import (
	"sync/atomic"
	"time"
)

// Metrics holds the worker's side-channel counters. Updated from job
// goroutines, read by the health and metrics handlers.
type Metrics struct {
	processing    atomic.Int64
	jobsProcessed atomic.Int64
	jobsFailed    atomic.Int64
	lastJobAt     atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) JobStarted() {
	m.processing.Add(1)
}

func (m *Metrics) JobFinished(succeeded bool) {
	m.processing.Add(-1)
	m.lastJobAt.Store(time.Now().Unix())
	if succeeded {
		m.jobsProcessed.Add(1)
	} else {
		m.jobsFailed.Add(1)
	}
}

type Snapshot struct {
	Processing    int64      `json:"processing"`
	LastJobAt     *time.Time `json:"lastJobAt"`
	JobsProcessed int64      `json:"jobsProcessed"`
	JobsFailed    int64      `json:"jobsFailed"`
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Processing:    m.processing.Load(),
		JobsProcessed: m.jobsProcessed.Load(),
		JobsFailed:    m.jobsFailed.Load(),
	}
	if unix := m.lastJobAt.Load(); unix > 0 {
		t := time.Unix(unix, 0).UTC()
		s.LastJobAt = &t
	}
	return s
}
