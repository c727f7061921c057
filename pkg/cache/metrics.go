package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks 304 Not Modified responses served from cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_hits_total",
			Help: "Total number of 304 responses served from the in-process cache",
		},
	)

	// CacheMisses tracks lookups without a stored entry
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_misses_total",
			Help: "Total number of cache lookups without an entry",
		},
	)

	// CacheEntries tracks the number of entries held
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gh_cache_entries",
			Help: "Current number of cached responses",
		},
	)

	// CacheEvictions tracks entries dropped to respect the size bound
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_evictions_total",
			Help: "Total number of cached responses evicted",
		},
	)
)
