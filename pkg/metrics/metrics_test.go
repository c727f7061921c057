package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/Sternrassler/github-user-analytics/pkg/pagination"
	_ "github.com/Sternrassler/github-user-analytics/pkg/ratelimit"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestHandler(t *testing.T) {
	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"gh_rate_limit_remaining", "gh_pages_fetched_total", "gh_aggregate_in_flight"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestHandler_UsesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prevRegistry, prevGatherer := Registry, Gatherer
	Registry, Gatherer = reg, reg
	defer func() { Registry, Gatherer = prevRegistry, prevGatherer }()

	custom := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gh_test_registered_total",
		Help: "Counter registered on the swapped registry",
	})
	reg.MustRegister(custom)
	custom.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"gh_test_registered_total 1", "promhttp_metric_handler_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
	if strings.Contains(body, "gh_rate_limit_remaining") {
		t.Error("handler served the default gatherer instead of Gatherer")
	}
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
