// Package follow computes follower relationships from two username sets.
package follow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Set is an unordered set of usernames.
type Set map[string]struct{}

// NewSet builds a set from names. Duplicates collapse.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name.
func (s Set) Add(name string) { s[name] = struct{}{} }

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names.
func (s Set) Len() int { return len(s) }

// Sorted returns the names in lexical order, for display.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// minus returns the names of s not in other.
func (s Set) minus(other Set) Set {
	out := make(Set)
	for n := range s {
		if !other.Has(n) {
			out.Add(n)
		}
	}
	return out
}

// DiffResult holds both directions of a set difference.
type DiffResult struct {
	InBNotA Set
	InANotB Set
}

// Diff computes b − a and a − b. Neither input is modified.
func Diff(a, b Set) DiffResult {
	return DiffResult{
		InBNotA: b.minus(a),
		InANotB: a.minus(b),
	}
}

// Kind selects a follow list.
type Kind string

const (
	Followers Kind = "followers"
	Following Kind = "following"
)

// Source supplies the usernames of one follow list.
type Source interface {
	Users(ctx context.Context, kind Kind) (Set, error)
}

// Status is the follow relationship of one account.
type Status struct {
	// NotFollowingBack are accounts followed that do not follow back.
	NotFollowingBack Set
	// UniqueFollowers are followers the account does not follow.
	UniqueFollowers Set
}

// StatusOf derives the follow status from both lists.
func StatusOf(followers, following Set) Status {
	d := Diff(followers, following)
	return Status{
		NotFollowingBack: d.InBNotA,
		UniqueFollowers:  d.InANotB,
	}
}

// Check fetches followers and following concurrently and returns the status.
// A list that fails counts as empty, so the status is still computed from
// whatever was fetched; the error then names every failed list.
func Check(ctx context.Context, src Source) (Status, error) {
	kinds := []Kind{Followers, Following}
	sets := make([]Set, len(kinds))
	errs := make([]error, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			s, err := src.Users(ctx, kind)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", kind, err)
				s = NewSet()
			}
			sets[i] = s
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return StatusOf(sets[0], sets[1]), fmt.Errorf("follow check: %w", err)
	}

	status := StatusOf(sets[0], sets[1])
	log.Debug().
		Int("followers", sets[0].Len()).
		Int("following", sets[1].Len()).
		Int("not_following_back", status.NotFollowingBack.Len()).
		Int("unique_followers", status.UniqueFollowers.Len()).
		Msg("Follow status computed")
	return status, nil
}
