package cache

import (
	"net/http"
	"time"
)

// NewEntry builds a CacheEntry from a response whose body has already been read.
// Returns nil if resp is nil.
func NewEntry(resp *http.Response, body []byte) *CacheEntry {
	if resp == nil {
		return nil
	}

	entry := &CacheEntry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   time.Now(),
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	return entry.Validatable()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the cache entry supports conditional requests.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil {
		return
	}

	// Prefer ETag over Last-Modified (more accurate)
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}

// MergeHeaders returns the cached headers overlaid with the fresh headers of
// a 304 response. Rate limit headers come from the 304; the Link header and
// content type come from the cached 200 unless the 304 repeats them.
func MergeHeaders(entry *CacheEntry, fresh http.Header) http.Header {
	merged := http.Header{}
	if entry != nil {
		merged = entry.Headers.Clone()
		if merged == nil {
			merged = http.Header{}
		}
	}
	for key, values := range fresh {
		merged[key] = append([]string(nil), values...)
	}
	return merged
}
