package cache

import (
	"net/http"
	"time"
)

// CacheEntry represents a cached API response.
type CacheEntry struct {
	// Data is the response body
	Data []byte

	// ETag for conditional requests (If-None-Match)
	ETag string

	// LastModified is when the data was last modified (from the Last-Modified header)
	LastModified time.Time

	// StatusCode is the HTTP status code of the cached response
	StatusCode int

	// Headers are the response headers, including Link for pagination
	Headers http.Header

	// CachedAt is when we cached this response
	CachedAt time.Time
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Validatable returns true if the entry carries a validator the server can
// check with a conditional request.
func (e *CacheEntry) Validatable() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
