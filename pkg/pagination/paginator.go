package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/github-user-analytics/pkg/client"
	"github.com/rs/zerolog/log"
)

// ErrFirstPage is returned by Collect when the first page of a chain fails.
var ErrFirstPage = errors.New("first page failed")

// Fetcher performs one logical GET. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) client.Result
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) client.Result

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) client.Result {
	return f(ctx, url)
}

// Collect walks the chain starting at startURL and returns the items of every
// page in server order. Each page payload must be a JSON array of T.
//
// If a later page fails, the items gathered so far are returned with a nil
// error. Only a first page failure returns ErrFirstPage. A next link pointing
// back to an already visited page ends the walk.
func Collect[T any](ctx context.Context, f Fetcher, startURL string) ([]T, error) {
	start := time.Now()
	logger := log.With().Str("component", "paginator").Str("start_url", startURL).Logger()

	var items []T
	visited := make(map[string]struct{})
	pages := 0

	for url := startURL; url != ""; {
		visited[url] = struct{}{}

		res := f.Fetch(ctx, url)
		var page []T
		err := res.Err
		if res.OK() {
			if decodeErr := json.Unmarshal(res.Payload, &page); decodeErr != nil {
				err = fmt.Errorf("decode page: %w", decodeErr)
			}
		} else if err == nil {
			err = fmt.Errorf("fetch failed: %s", res.Outcome)
		}

		if err != nil {
			if pages == 0 {
				ghPaginationTotal.WithLabelValues("failed").Inc()
				return nil, fmt.Errorf("%w: %s: %w", ErrFirstPage, url, err)
			}
			ghPaginationTotal.WithLabelValues("partial").Inc()
			logger.Warn().
				Err(err).
				Str("url", url).
				Int("pages", pages).
				Int("items", len(items)).
				Msg("Page fetch failed - returning partial results")
			return items, nil
		}

		items = append(items, page...)
		pages++
		ghPagesFetchedTotal.Inc()

		next := nextURL(url, res.Header)
		if _, seen := visited[next]; seen && next != "" {
			logger.Warn().
				Str("url", url).
				Str("next", next).
				Msg("Next link revisits a fetched page, stopping")
			next = ""
		}
		url = next
	}

	ghPaginationTotal.WithLabelValues("complete").Inc()
	logger.Debug().
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	if items == nil {
		items = []T{}
	}
	return items, nil
}
