package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayUntil(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		when time.Time
		want time.Duration
	}{
		{"future time keeps its delay", now.Add(2 * time.Hour), 2 * time.Hour},
		{"exactly now runs immediately", now, 0},
		{"just past runs immediately", now.Add(-30 * time.Second), 0},
		{"long past runs immediately", now.Add(-24 * time.Hour), 0},
		{"one second ahead", now.Add(time.Second), time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DelayUntil(tt.when, now))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 30*time.Second, RetryDelay(0, nil, nil))
	assert.Equal(t, time.Minute, RetryDelay(1, nil, nil))
	assert.Equal(t, 2*time.Minute, RetryDelay(2, nil, nil))
	assert.Equal(t, 4*time.Minute, RetryDelay(3, nil, nil))
	assert.Equal(t, 8*time.Minute, RetryDelay(4, nil, nil))

	// Capped from the fifth retry on.
	assert.Equal(t, 15*time.Minute, RetryDelay(5, nil, nil))
	assert.Equal(t, 15*time.Minute, RetryDelay(10, nil, nil))

	// Shift overflow must not produce a negative or zero delay.
	assert.Equal(t, 15*time.Minute, RetryDelay(63, nil, nil))
}

func TestRetryDelayMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for n := 0; n < 20; n++ {
		d := RetryDelay(n, nil, nil)
		assert.GreaterOrEqual(t, d, prev, "retry %d", n)
		assert.LessOrEqual(t, d, 15*time.Minute, "retry %d", n)
		prev = d
	}
}
