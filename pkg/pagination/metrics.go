package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pagination.
var (
	ghPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_pages_fetched_total",
		Help: "Total number of listing pages merged into a result",
	})

	ghPaginationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_pagination_total",
		Help: "Total number of pagination walks by result (complete, partial, failed)",
	}, []string{"result"})

	ghAggregateParentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_aggregate_parents_total",
		Help: "Total number of per-parent sub-fetches by result",
	}, []string{"result"})

	ghAggregateInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gh_aggregate_in_flight",
		Help: "Number of per-parent sub-fetches currently running",
	})
)
