package pagination

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds aggregator configuration.
type Config struct {
	// MaxConcurrency caps the number of parents fetched at once.
	// 0 means one concurrent task per parent.
	MaxConcurrency int
}

// DefaultConfig returns the default aggregator configuration (unbounded).
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 0,
	}
}

// Aggregated joins a parent with the items of its sub-listing.
type Aggregated[P, C any] struct {
	Parent   P
	Children []C
}

// Aggregate runs one Collect per parent against urlFor(parent) and returns the
// results in parent order. A parent whose sub-fetch fails, or whose URL is
// empty, gets empty children; siblings are unaffected. Aggregate returns
// after every scheduled sub-fetch has finished.
func Aggregate[P, C any](ctx context.Context, f Fetcher, parents []P, urlFor func(P) string, cfg Config) []Aggregated[P, C] {
	start := time.Now()
	logger := log.With().Str("component", "aggregator").Logger()

	results := make([]Aggregated[P, C], len(parents))

	var g errgroup.Group
	if cfg.MaxConcurrency > 0 {
		g.SetLimit(cfg.MaxConcurrency)
	}

	for i, parent := range parents {
		results[i].Parent = parent
		results[i].Children = []C{}

		url := urlFor(parent)
		if url == "" {
			ghAggregateParentsTotal.WithLabelValues("skipped").Inc()
			logger.Warn().Int("parent", i).Msg("No sub-resource URL, skipping")
			continue
		}

		g.Go(func() error {
			ghAggregateInFlight.Inc()
			defer ghAggregateInFlight.Dec()

			children, err := Collect[C](ctx, f, url)
			if err != nil {
				ghAggregateParentsTotal.WithLabelValues("failed").Inc()
				logger.Warn().
					Err(err).
					Int("parent", i).
					Str("url", url).
					Msg("Sub-fetch failed, using empty children")
				return nil
			}
			ghAggregateParentsTotal.WithLabelValues("ok").Inc()
			results[i].Children = children
			return nil
		})
	}

	// Tasks never return errors; failures stay per parent.
	_ = g.Wait()

	logger.Debug().
		Int("parents", len(parents)).
		Int("max_concurrency", cfg.MaxConcurrency).
		Dur("duration", time.Since(start)).
		Msg("Aggregation complete")

	return results
}
