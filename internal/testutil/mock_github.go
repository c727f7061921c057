// Package testutil provides testing utilities for the GitHub API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub API server for testing.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// rate limit window reported on every response and by /rate_limit
	remaining int
	limit     int
	resetAt   time.Time

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	pathCounts        map[string]int
}

// NewMockGitHub creates a new mock GitHub server with a fresh, full window.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
		remaining:  5000,
		limit:      5000,
		resetAt:    time.Now().Add(time.Hour),
	}

	mock.SetHandler("/rate_limit", mock.rateLimitHandler)

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.pathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		mock.writeRateLimitHeaders(w)

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Client returns an HTTP client wired to the mock server.
func (m *MockGitHub) Client() *http.Client {
	return m.server.Client()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.pathCounts = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		if _, ok := resp.Headers["Content-Type"]; !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPages serves a paginated listing at path. pages[i] is the JSON array
// body of page i+1, selected by the page query parameter. Every page but the
// last carries a Link header with rel="next"; other query parameters are kept.
func (m *MockGitHub) SetPages(path string, pages ...string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		n := 1
		if p := r.URL.Query().Get("page"); p != "" {
			var err error
			if n, err = strconv.Atoi(p); err != nil {
				n = 0
			}
		}
		if n < 1 || n > len(pages) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write([]byte("[]"))
			return
		}

		if n < len(pages) {
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`,
				m.pageURL(r, n+1), m.pageURL(r, len(pages))))
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(pages[n-1]))
	})
}

func (m *MockGitHub) pageURL(r *http.Request, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	return m.server.URL + u.String()
}

// SetRateLimit sets the window reported in X-RateLimit-* headers and by
// the /rate_limit endpoint.
func (m *MockGitHub) SetRateLimit(remaining int, resetAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = remaining
	m.resetAt = resetAt
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockGitHub) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockGitHub) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

func (m *MockGitHub) writeRateLimitHeaders(w http.ResponseWriter) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(m.remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(m.resetAt.Unix(), 10))
	w.Header().Set("X-RateLimit-Resource", "core")
}

// rateLimitHandler mirrors GET /rate_limit.
func (m *MockGitHub) rateLimitHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	core := map[string]any{
		"limit":     m.limit,
		"remaining": m.remaining,
		"reset":     m.resetAt.Unix(),
	}
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]any{
		"resources": map[string]any{"core": core},
		"rate":      core,
	})
}

// defaultHandler answers unknown paths like GitHub does.
func (m *MockGitHub) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`))
}

// Users renders a JSON array of user objects with the given logins.
func Users(logins ...string) string {
	users := make([]map[string]string, 0, len(logins))
	for _, l := range logins {
		users = append(users, map[string]string{"login": l})
	}
	b, _ := json.Marshal(users)
	return string(b)
}
