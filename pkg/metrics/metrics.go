// Package metrics exposes the Prometheus metrics of the GitHub client.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination) and registered via promauto; this package serves
// them and documents what is available.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by Handler. It must gather what Registry registers.
var Gatherer = prometheus.DefaultGatherer

// Handler exposes Gatherer and instruments itself on Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - gh_rate_limit_remaining (Gauge): Requests remaining in the current core window
//   - gh_rate_limit_waits_total (Counter): Requests held until the window reset
//   - gh_rate_limit_wait_seconds (Histogram): Time spent waiting for a reset
//   - gh_rate_limit_probes_total{result} (Counter): /rate_limit queries (ok, error, missing_reset)
//
// Cache Metrics (pkg/cache):
//   - gh_cache_hits_total (Counter): 304 responses served from the conditional cache
//   - gh_cache_misses_total (Counter): Cache lookups without an entry
//   - gh_cache_entries (Gauge): Entries currently held
//   - gh_cache_evictions_total (Counter): Entries evicted by the size bound
//
// Request Metrics (pkg/client):
//   - gh_requests_total{outcome, status} (Counter): HTTP attempts by outcome and status
//   - gh_fetch_duration_seconds{outcome} (Histogram): Logical fetch duration including waits
//
// Retry Metrics (pkg/client):
//   - gh_retries_total{outcome} (Counter): Retries by cause (transient, rate_limited)
//   - gh_retry_backoff_seconds (Histogram): Backoff before transient retries
//   - gh_retry_exhausted_total (Counter): Fetches that exhausted their attempts
//
// Pagination Metrics (pkg/pagination):
//   - gh_pages_fetched_total (Counter): Pages merged into a result
//   - gh_pagination_total{result} (Counter): Walks by result (complete, partial, failed)
//   - gh_aggregate_parents_total{result} (Counter): Sub-fetches by result (ok, failed, skipped)
//   - gh_aggregate_in_flight (Gauge): Sub-fetches currently running
//
// Example Prometheus Queries:
//
//   # Conditional cache hit rate
//   rate(gh_cache_hits_total[5m]) / rate(gh_requests_total[5m])
//
//   # Budget nearly exhausted
//   gh_rate_limit_remaining < 100
//
//   # Transient failure rate
//   rate(gh_retries_total{outcome="transient"}[5m])
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(gh_fetch_duration_seconds_bucket[5m]))
