package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for budget tracking.
var (
	ghRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gh_rate_limit_remaining",
		Help: "Requests remaining in the current core rate limit window",
	})

	ghRateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_rate_limit_waits_total",
		Help: "Total number of requests held until the rate limit window reset",
	})

	ghRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gh_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the rate limit window to reset",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 3600},
	})

	ghRateLimitProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_rate_limit_probes_total",
		Help: "Total number of rate limit endpoint queries by result",
	}, []string{"result"})
)

// Config holds budget configuration.
type Config struct {
	// PollInterval is how often progress is reported while waiting for a reset.
	PollInterval time.Duration
}

// DefaultConfig returns the default budget configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
	}
}

// Budget is the request budget shared by every requester in the process.
// All requesters must hold the same *Budget.
//
// Policy: the authoritative endpoint is consulted lazily. Requests go out
// without a meta-request while no window is recorded, the recorded window has
// reset, or it still reports remaining capacity. Only when the recorded window
// is active and exhausted (or its remaining count is unknown) is the endpoint
// queried, and the caller waits for the reset if it confirms exhaustion.
type Budget struct {
	store  Store
	probe  Probe
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewBudget creates a budget. A nil store defaults to an in-memory store.
func NewBudget(store Store, probe Probe, cfg Config, logger zerolog.Logger) *Budget {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Budget{
		store:  store,
		probe:  probe,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Current returns the recorded window, or nil if none is known.
// Store failures are logged and treated as no window.
func (b *Budget) Current(ctx context.Context) *Window {
	w, err := b.store.Load(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to load rate limit window")
		return nil
	}
	return w
}

// ResetAt returns the recorded reset time, zero if unset.
func (b *Budget) ResetAt(ctx context.Context) time.Time {
	if w := b.Current(ctx); w != nil {
		return w.ResetAt
	}
	return time.Time{}
}

// Record stores an observed window. Windows resetting before the recorded
// one are ignored.
func (b *Budget) Record(ctx context.Context, w *Window) {
	if w == nil {
		return
	}
	applied, err := b.store.Save(ctx, w)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to store rate limit window")
		return
	}
	if !applied {
		b.logger.Debug().
			Time("reset_at", w.ResetAt).
			Msg("Ignoring stale rate limit window")
		return
	}
	if w.Remaining >= 0 {
		ghRateLimitRemaining.Set(float64(w.Remaining))
	}
	b.logger.Debug().
		Int("remaining", w.Remaining).
		Time("reset_at", w.ResetAt).
		Msg("Rate limit window updated")
}

// RecordReset records an authoritative reset time with unknown remaining
// capacity. Until a fuller observation arrives, the next request inside the
// window consults the rate limit endpoint.
func (b *Budget) RecordReset(ctx context.Context, resetAt time.Time) {
	b.Record(ctx, &Window{
		Remaining:  RemainingUnknown,
		ResetAt:    resetAt,
		ObservedAt: b.now(),
	})
}

// Refresh queries the authoritative endpoint and records the result.
func (b *Budget) Refresh(ctx context.Context) (*Window, error) {
	if b.probe == nil {
		return nil, errors.New("no rate limit probe configured")
	}
	w, err := b.probe.Probe(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingReset) {
			ghRateLimitProbesTotal.WithLabelValues("missing_reset").Inc()
			b.logger.Error().Err(err).Msg("Rate limit reset unknown, tracking left unchanged")
		} else {
			ghRateLimitProbesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	ghRateLimitProbesTotal.WithLabelValues("ok").Inc()
	b.Record(ctx, w)
	return w, nil
}

// CheckAndWait is called before every request. It returns immediately when
// the budget has capacity and otherwise blocks until the recorded reset time,
// logging progress every PollInterval. It only fails if ctx is cancelled.
func (b *Budget) CheckAndWait(ctx context.Context) error {
	w := b.Current(ctx)
	if !w.ActiveAt(b.now()) || !w.Exhausted() {
		return nil
	}

	fresh, err := b.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("rate limit check: %w", ctx.Err())
		}
		b.logger.Warn().Err(err).Msg("Rate limit check failed, proceeding")
		return nil
	}
	if !fresh.Exhausted() {
		b.logger.Debug().Int("remaining", fresh.Remaining).Msg("Rate limit capacity available")
		return nil
	}

	resetAt := fresh.ResetAt
	if cur := b.Current(ctx); cur != nil && cur.ResetAt.After(resetAt) {
		resetAt = cur.ResetAt
	}
	return b.waitUntil(ctx, resetAt)
}

// waitUntil blocks the calling goroutine only, until resetAt or ctx is done.
func (b *Budget) waitUntil(ctx context.Context, resetAt time.Time) error {
	wait := resetAt.Sub(b.now())
	if wait <= 0 {
		return nil
	}

	b.logger.Warn().
		Time("reset_at", resetAt.UTC()).
		Dur("wait", wait).
		Msg("Rate limit in effect, waiting for reset")
	ghRateLimitWaitsTotal.Inc()

	start := time.Now()
	defer func() {
		ghRateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-ticker.C:
			b.logger.Info().
				Str("remaining", formatRemaining(resetAt.Sub(b.now()))).
				Msg("Waiting for rate limit reset")
		case <-timer.C:
			b.logger.Info().Msg("Rate limit window reset")
			return nil
		}
	}
}

// formatRemaining renders a wait duration as "1h 2m 3s".
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
