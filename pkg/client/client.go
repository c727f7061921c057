// Package client provides the rate-aware GitHub API requester: one logical
// GET with budget gating, response classification and retries.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/github-user-analytics/pkg/cache"
	"github.com/Sternrassler/github-user-analytics/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for client operations.
var (
	ghRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_requests_total",
		Help: "Total HTTP attempts by outcome and status",
	}, []string{"outcome", "status"})

	ghFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gh_fetch_duration_seconds",
		Help:    "Duration of a logical fetch including waits and retries, by final outcome",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 60, 600},
	}, []string{"outcome"})
)

// maxErrorBody bounds how much of a non-2xx body is drained for reuse.
const maxErrorBody = 64 << 10

// Client is the GitHub API requester. It is safe for concurrent use; every
// goroutine shares the same budget, pacer and connection pool.
type Client struct {
	httpClient *http.Client
	budget     *ratelimit.Budget
	cache      *cache.Manager
	limiter    *rate.Limiter
	config     Config
	header     http.Header
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header (REQUIRED by GitHub)
	UserAgent string

	// Token is an optional personal access token sent as a bearer token.
	Token string

	// Accept header, defaults to the GitHub v3 JSON media type.
	Accept string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests on top of the budget.
	// 0 disables pacing.
	RequestsPerSecond float64
	Burst             int

	// ConditionalRequests enables the in-process ETag cache. It only saves
	// budget when the same Client fetches a URL more than once.
	ConditionalRequests bool
	CacheMaxEntries     int

	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:           userAgent,
		Accept:              "application/vnd.github+json",
		Timeout:             30 * time.Second,
		RequestsPerSecond:   0,
		Burst:               1,
		ConditionalRequests: true,
		CacheMaxEntries:     cache.DefaultMaxEntries,
		Retry:               DefaultRetryConfig(),
	}
}

// Header returns the headers sent with every request. The rate limit probe
// uses the same headers so both are accounted to the same token.
func (c Config) Header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", c.UserAgent)
	accept := c.Accept
	if accept == "" {
		accept = "application/vnd.github+json"
	}
	h.Set("Accept", accept)
	if c.Token != "" {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	return h
}

// New creates a new client. budget is required and must be shared with any
// other client in the process.
func New(cfg Config, budget *ratelimit.Budget) (*Client, error) {
	if budget == nil {
		return nil, fmt.Errorf("rate budget is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("retry config: %w", err)
	}

	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %v)", cfg.RequestsPerSecond)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		budget: budget,
		config: cfg,
		header: cfg.Header(),
		logger: log.With().Str("component", "gh-client").Logger(),
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if cfg.ConditionalRequests {
		c.cache = cache.NewManager(cfg.CacheMaxEntries)
	}

	return c, nil
}

// Fetch performs one logical GET. It waits on the budget before every
// attempt, retries rate limited responses after the budget wait and network
// failures with exponential backoff, and returns the classified outcome.
// Failures are logged here and never panic; callers inspect Result.
func (c *Client) Fetch(ctx context.Context, url string) Result {
	start := time.Now()
	res := c.fetch(ctx, url)
	ghFetchDuration.WithLabelValues(res.Outcome.String()).Observe(time.Since(start).Seconds())
	return res
}

func (c *Client) fetch(ctx context.Context, url string) Result {
	transientFailures := 0
	rateLimitWaits := 0

	for {
		if err := c.budget.CheckAndWait(ctx); err != nil {
			return failure(url, OutcomePermanent, 0, fmt.Errorf("%w: %v", ErrContextCancelled, err))
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return failure(url, OutcomePermanent, 0, fmt.Errorf("%w: %v", ErrContextCancelled, err))
			}
		}

		res := c.attempt(ctx, url)
		ghRequestsTotal.WithLabelValues(res.Outcome.String(), statusLabel(res.StatusCode)).Inc()

		switch res.Outcome {
		case OutcomeSuccess:
			if transientFailures > 0 || rateLimitWaits > 0 {
				c.logger.Info().
					Str("url", url).
					Int("transient_failures", transientFailures).
					Int("rate_limit_waits", rateLimitWaits).
					Msg("Request succeeded after retry")
			}
			return res

		case OutcomeNotFound:
			c.logger.Error().Str("url", url).Msg("Resource not found")
			return res

		case OutcomeRateLimited:
			rateLimitWaits++
			if rateLimitWaits > c.config.Retry.MaxRateLimitWaits {
				c.logger.Error().
					Str("url", url).
					Int("waits", rateLimitWaits-1).
					Msg("Still rate limited, giving up")
				return failure(url, OutcomePermanent, res.StatusCode, ErrRateLimitWaits)
			}
			ghRetriesTotal.WithLabelValues(OutcomeRateLimited.String()).Inc()

			if d := retryAfter(res.Header); d > 0 {
				c.logger.Warn().
					Str("url", url).
					Dur("retry_after", d).
					Msg("Secondary rate limit hit, backing off")
				if err := sleepContext(ctx, d); err != nil {
					return failure(url, OutcomePermanent, 0, err)
				}
				continue
			}

			c.logger.Warn().
				Str("url", url).
				Int("status", res.StatusCode).
				Msg("Rate limit exceeded, waiting for budget")
			if _, ok := ratelimit.WindowFromHeaders(res.Header); !ok {
				if _, err := c.budget.Refresh(ctx); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to refresh rate limit after rejection")
				}
			}

			// A rejection the budget does not account for must not retry hot.
			waitStart := time.Now()
			if err := c.budget.CheckAndWait(ctx); err != nil {
				return failure(url, OutcomePermanent, 0, fmt.Errorf("%w: %v", ErrContextCancelled, err))
			}
			floor := c.config.Retry.Backoff(rateLimitWaits)
			if waited := time.Since(waitStart); waited < floor {
				c.logger.Warn().
					Str("url", url).
					Dur("backoff", floor-waited).
					Msg("Rate limited with budget remaining, backing off")
				if err := sleepContext(ctx, floor-waited); err != nil {
					return failure(url, OutcomePermanent, 0, err)
				}
			}

		case OutcomeTransient:
			transientFailures++
			if transientFailures >= c.config.Retry.MaxAttempts {
				ghRetryExhaustedTotal.Inc()
				c.logger.Error().
					Err(res.Err).
					Str("url", url).
					Int("max_attempts", c.config.Retry.MaxAttempts).
					Msg("Max retries reached, giving up")
				return failure(url, OutcomePermanent, res.StatusCode,
					fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, transientFailures, res.Err))
			}

			backoff := c.config.Retry.Backoff(transientFailures)
			ghRetriesTotal.WithLabelValues(OutcomeTransient.String()).Inc()
			ghRetryBackoffSeconds.Observe(backoff.Seconds())
			c.logger.Warn().
				Err(res.Err).
				Str("url", url).
				Int("attempt", transientFailures).
				Dur("backoff", backoff).
				Msg("Request failed, retrying after backoff")
			if err := sleepContext(ctx, backoff); err != nil {
				return failure(url, OutcomePermanent, 0, err)
			}

		default:
			c.logger.Error().
				Err(res.Err).
				Str("url", url).
				Int("status", res.StatusCode).
				Msg("Request failed")
			return res
		}
	}
}

// attempt performs a single physical HTTP request and classifies it.
func (c *Client) attempt(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failure(url, OutcomePermanent, 0, fmt.Errorf("create request: %w", err))
	}
	for key, values := range c.header {
		req.Header[key] = values
	}

	var cached *cache.CacheEntry
	cacheKey := cache.Key(url)
	if c.cache != nil {
		if entry, ok := c.cache.Get(cacheKey); ok && cache.ShouldMakeConditionalRequest(entry) {
			cached = entry
			cache.AddConditionalHeaders(req, entry)
		}
	}

	c.logger.Debug().
		Str("url", url).
		Bool("conditional", cached != nil).
		Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return failure(url, OutcomePermanent, 0, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err()))
		}
		return failure(url, OutcomeTransient, 0, err)
	}
	defer resp.Body.Close()

	if w, ok := ratelimit.WindowFromHeaders(resp.Header); ok {
		c.budget.Record(ctx, w)
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		cache.CacheHits.Inc()
		c.logger.Debug().Str("url", url).Msg("304 Not Modified - using cache")
		return Result{
			Outcome:    OutcomeSuccess,
			StatusCode: http.StatusOK,
			Payload:    cached.Data,
			Header:     cache.MergeHeaders(cached, resp.Header),
		}

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return c.success(url, resp, cacheKey)

	case resp.StatusCode == http.StatusNotFound:
		drain(resp.Body)
		return failure(url, OutcomeNotFound, resp.StatusCode, ErrNotFound)

	case isRateLimited(resp):
		drain(resp.Body)
		return Result{
			Outcome:    OutcomeRateLimited,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Err: &RequestError{
				URL:        url,
				StatusCode: resp.StatusCode,
				Outcome:    OutcomeRateLimited,
				Err:        errors.New(resp.Status),
			},
		}

	default:
		drain(resp.Body)
		return failure(url, OutcomePermanent, resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status))
	}
}

// success validates a 2xx response and stores it for later conditional requests.
func (c *Client) success(url string, resp *http.Response, cacheKey string) Result {
	if !isJSON(resp.Header.Get("Content-Type")) {
		drain(resp.Body)
		return failure(url, OutcomePermanent, resp.StatusCode,
			fmt.Errorf("%w: expected JSON, got %q", ErrContentType, resp.Header.Get("Content-Type")))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Connection dropped mid-body.
		return failure(url, OutcomeTransient, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}

	if !json.Valid(body) {
		return failure(url, OutcomePermanent, resp.StatusCode, ErrInvalidJSON)
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, cache.NewEntry(resp, body))
	}

	return Result{
		Outcome:    OutcomeSuccess,
		StatusCode: resp.StatusCode,
		Payload:    body,
		Header:     resp.Header,
	}
}

// isRateLimited distinguishes budget exhaustion from other 403s. GitHub
// signals exhaustion with X-RateLimit-Remaining: 0 and secondary limits
// with Retry-After; 429 is always a rate limit.
func isRateLimited(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		if resp.Header.Get("Retry-After") != "" {
			return true
		}
		return resp.Header.Get(ratelimit.HeaderRemaining) == "0"
	default:
		return false
	}
}

// isJSON accepts application/json and structured +json media types.
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// HTTPClient returns the underlying HTTP client so the rate limit probe can
// share its connection pool.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// GetCache returns the conditional request cache, nil when disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
