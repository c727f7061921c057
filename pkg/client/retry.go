package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	ghRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_retries_total",
		Help: "Total number of retry attempts by outcome",
	}, []string{"outcome"})

	ghRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gh_retry_backoff_seconds",
		Help:    "Backoff duration before retrying a transient failure",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 60},
	})

	ghRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_retry_exhausted_total",
		Help: "Total number of requests abandoned after exhausting retries",
	})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts for transient failures
	// (including the initial request).
	MaxAttempts int

	// InitialBackoff is the base of the exponential backoff.
	InitialBackoff time.Duration

	// MaxBackoff caps a single backoff.
	MaxBackoff time.Duration

	// MaxRateLimitWaits bounds how many times one request may be rate
	// limited. These waits do not count against MaxAttempts.
	MaxRateLimitWaits int
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        60 * time.Second,
		MaxRateLimitWaits: 10,
	}
}

// Validate checks the retry configuration.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", c.MaxAttempts)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be > 0 (got %v)", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}
	if c.MaxRateLimitWaits < 1 {
		return fmt.Errorf("max_rate_limit_waits must be >= 1 (got %d)", c.MaxRateLimitWaits)
	}
	return nil
}

// Backoff returns the delay after the given failed attempt:
// min(InitialBackoff * 2^attempt, MaxBackoff), attempt starting at 1.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return d
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
