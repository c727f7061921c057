package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultRateLimitURL is GitHub's rate limit introspection endpoint.
// Calls to it do not count against the core budget.
const DefaultRateLimitURL = "https://api.github.com/rate_limit"

// Probe reads the authoritative rate limit window.
type Probe interface {
	Probe(ctx context.Context) (*Window, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) (*Window, error)

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context) (*Window, error) {
	return f(ctx)
}

// rateLimitResponse mirrors the parts of the /rate_limit payload we rely on.
type rateLimitResponse struct {
	Resources struct {
		Core *struct {
			Limit     int    `json:"limit"`
			Remaining *int   `json:"remaining"`
			Reset     *int64 `json:"reset"`
		} `json:"core"`
	} `json:"resources"`
}

// HTTPProbe queries the rate limit endpoint over HTTP.
type HTTPProbe struct {
	httpClient *http.Client
	url        string
	header     http.Header
}

// NewHTTPProbe creates a probe for url. header is sent with every probe
// (User-Agent, Authorization).
func NewHTTPProbe(httpClient *http.Client, url string, header http.Header) *HTTPProbe {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if url == "" {
		url = DefaultRateLimitURL
	}
	return &HTTPProbe{
		httpClient: httpClient,
		url:        url,
		header:     header.Clone(),
	}
}

// Probe fetches and decodes the core window.
func (p *HTTPProbe) Probe(ctx context.Context) (*Window, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range p.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("get %s: unexpected status %d", p.url, resp.StatusCode)
	}

	var payload rateLimitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rate limit response: %w", err)
	}

	return payload.window()
}

func (r *rateLimitResponse) window() (*Window, error) {
	core := r.Resources.Core
	if core == nil || core.Reset == nil {
		return nil, ErrMissingReset
	}

	remaining := 0
	if core.Remaining != nil {
		remaining = *core.Remaining
	}

	return &Window{
		Remaining:  remaining,
		Limit:      core.Limit,
		ResetAt:    time.Unix(*core.Reset, 0),
		ObservedAt: time.Now(),
	}, nil
}
