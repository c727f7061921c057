package client

import (
	"encoding/json"
	"net/http"
)

// Outcome classifies one HTTP attempt.
type Outcome int

const (
	// OutcomeSuccess is a 2xx response with a JSON body.
	OutcomeSuccess Outcome = iota

	// OutcomeNotFound is a 404. Terminal, never retried.
	OutcomeNotFound

	// OutcomeRateLimited is a 403/429 signalling an exhausted budget.
	// Retried after the budget wait without consuming retry attempts.
	OutcomeRateLimited

	// OutcomeTransient is a network-level failure, retried with backoff.
	OutcomeTransient

	// OutcomePermanent is any failure that will not succeed on retry:
	// unexpected status, non-JSON body, or exhausted retries.
	OutcomePermanent
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Result is the outcome of a fetch. Fetch only returns Success, NotFound or
// Permanent; RateLimited and Transient are resolved inside the retry loop.
type Result struct {
	Outcome    Outcome
	StatusCode int

	// Payload is the raw JSON body on success.
	Payload json.RawMessage

	// Header carries the response headers on success, including Link.
	Header http.Header

	// Err describes the failure for any outcome other than success.
	Err error
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}
