// Package ratelimit implements the shared GitHub API request budget.
// It tracks the core rate limit window (remaining requests and reset time)
// observed from X-RateLimit-* headers and the /rate_limit endpoint, and gates
// requests until the window resets when the budget is exhausted.
package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// GitHub rate limit response headers.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderResource  = "X-RateLimit-Resource"
)

// ResourceCore is the rate limit category consumed by REST listing calls.
const ResourceCore = "core"

// RemainingUnknown marks a window whose reset time is known but whose
// remaining count has not been observed yet.
const RemainingUnknown = -1

// ErrMissingReset is returned by a probe when the rate limit payload has no
// reset timestamp for the core resource.
var ErrMissingReset = errors.New("rate limit information missing 'reset' field")

// Window represents one observation of the core rate limit window.
// Windows are immutable once recorded; a newer observation replaces the whole value.
type Window struct {
	// Remaining is the number of requests left before ResetAt.
	// RemainingUnknown when only the reset time is known.
	Remaining int `json:"remaining"`

	// Limit is the total request allowance of the window (0 if not reported).
	Limit int `json:"limit"`

	// ResetAt is when the window resets. Second precision when read from the API.
	ResetAt time.Time `json:"reset_at"`

	// ObservedAt is when this window was recorded.
	ObservedAt time.Time `json:"observed_at"`
}

// ActiveAt reports whether the window has not reset yet at the given time.
func (w *Window) ActiveAt(now time.Time) bool {
	return w != nil && now.Before(w.ResetAt)
}

// Exhausted returns true if no requests are known to be left in the window.
func (w *Window) Exhausted() bool {
	return w.Remaining <= 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (w *Window) TimeUntilReset() time.Duration {
	d := time.Until(w.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// WindowFromHeaders extracts the core rate limit window from response headers.
// The second return value is false when the headers carry no usable window,
// including windows reported for a resource other than core (e.g. search).
func WindowFromHeaders(headers http.Header) (*Window, bool) {
	if res := headers.Get(HeaderResource); res != "" && res != ResourceCore {
		return nil, false
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return nil, false
	}
	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return nil, false
	}

	remaining := RemainingUnknown
	if v := headers.Get(HeaderRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			remaining = n
		}
	}

	limit, _ := strconv.Atoi(headers.Get(HeaderLimit))

	return &Window{
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    time.Unix(reset, 0),
		ObservedAt: time.Now(),
	}, true
}

// supersedes reports whether next may replace cur. Reset times never move
// backward: an observation for an earlier window is stale and is dropped.
// Within one window the remaining count only falls, so a reordered response
// reporting more remaining, or an unknown count over a known one, is stale too.
func supersedes(cur, next *Window) bool {
	if cur == nil {
		return true
	}
	if next.ResetAt.Before(cur.ResetAt) {
		return false
	}
	if next.ResetAt.After(cur.ResetAt) || cur.Remaining == RemainingUnknown {
		return true
	}
	return next.Remaining != RemainingUnknown && next.Remaining <= cur.Remaining
}
