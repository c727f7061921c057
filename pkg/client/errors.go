package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled while
	// waiting on the budget, the pacer or a backoff.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrContentType is returned when a successful response is not JSON.
	ErrContentType = errors.New("unexpected content type")

	// ErrInvalidJSON is returned when a successful response body does not parse.
	ErrInvalidJSON = errors.New("invalid JSON body")

	// ErrRateLimitWaits is returned when a request stayed rate limited after
	// the maximum number of budget waits.
	ErrRateLimitWaits = errors.New("still rate limited after waiting")
)

// RequestError represents a failed request with additional context.
type RequestError struct {
	URL        string
	StatusCode int
	Outcome    Outcome
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("GET %s: %s (status %d): %v", e.URL, e.Outcome, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("GET %s: %s: %v", e.URL, e.Outcome, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// failure builds a non-success Result carrying a RequestError.
func failure(url string, outcome Outcome, status int, err error) Result {
	return Result{
		Outcome:    outcome,
		StatusCode: status,
		Err: &RequestError{
			URL:        url,
			StatusCode: status,
			Outcome:    outcome,
			Err:        err,
		},
	}
}
