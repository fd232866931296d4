package worker

import (
	"math"
	"time"
)

const (
	defaultSyncAttempts = 5
	defaultSyncDelay    = 2 * time.Second
	maxSyncDelay        = time.Minute
)

// RetryPolicy controls how often a failed mirror write is replayed against the sinks.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// withDefaults fills zero fields. Sheets quota errors clear within a minute,
// so the delay is capped there.
func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaultSyncAttempts
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = defaultSyncDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = maxSyncDelay
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = 2
	}
	return r
}

// Exhausted reports whether a task that just failed its attempt-th delivery
// should go to the dead letter list instead of being rescheduled.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// NextDelay is the backoff before delivery attempt+1.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if d <= 0 || d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

// NextRetryAt schedules the next delivery of a task that failed at now.
func (r RetryPolicy) NextRetryAt(now time.Time, attempt int) time.Time {
	return now.Add(r.NextDelay(attempt))
}
