// Package github lists repositories, stargazers and follow lists of a GitHub
// account on top of the rate-aware client.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/github-user-analytics/pkg/follow"
	"github.com/Sternrassler/github-user-analytics/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// ErrNoRepositories is returned when the repository listing yields nothing.
var ErrNoRepositories = errors.New("no repositories found")

// Config holds service configuration.
type Config struct {
	// BaseURL of the REST API, without trailing slash.
	BaseURL string

	// PerPage is added to listing URLs as per_page. 0 leaves the server default.
	PerPage int

	// Aggregate bounds the per-repository stargazer fan-out.
	Aggregate pagination.Config
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		PerPage:   100,
		Aggregate: pagination.DefaultConfig(),
	}
}

// Service answers account-level questions. It is safe for concurrent use.
type Service struct {
	fetcher pagination.Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewService creates a service issuing requests through fetcher.
func NewService(fetcher pagination.Fetcher, cfg Config) (*Service, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.PerPage < 0 || cfg.PerPage > 100 {
		return nil, fmt.Errorf("per_page must be between 0 and 100 (got %d)", cfg.PerPage)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Service{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "github").Logger(),
	}, nil
}

// Repositories lists the public repositories of username with their
// stargazers. The listing is walked once; each repository's stargazers are
// fetched concurrently. A repository whose stargazers cannot be fetched is
// reported with none. ErrNoRepositories is returned when the first page fails
// or the account has no repositories.
func (s *Service) Repositories(ctx context.Context, username string) ([]RepositoryInfo, error) {
	start := time.Now()

	repos, err := pagination.Collect[Repository](ctx, s.fetcher, s.userURL(username, "repos"))
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrNoRepositories, username, err)
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoRepositories, username)
	}

	aggregated := pagination.Aggregate[Repository, User](ctx, s.fetcher, repos,
		func(r Repository) string { return s.listURL(r.StargazersURL) },
		s.config.Aggregate)

	infos := make([]RepositoryInfo, 0, len(aggregated))
	for _, a := range aggregated {
		infos = append(infos, RepositoryInfo{
			Name:       a.Parent.Name,
			Stars:      a.Parent.StargazersCount,
			Stargazers: s.logins(a.Children, a.Parent.Name),
		})
	}

	s.logger.Info().
		Str("user", username).
		Int("repositories", len(infos)).
		Dur("duration", time.Since(start)).
		Msg("Repositories fetched")

	return infos, nil
}

// Users returns the followers or following list of username.
func (s *Service) Users(ctx context.Context, username string, kind follow.Kind) (follow.Set, error) {
	users, err := pagination.Collect[User](ctx, s.fetcher, s.userURL(username, string(kind)))
	if err != nil {
		return nil, fmt.Errorf("list %s of %s: %w", kind, username, err)
	}
	return follow.NewSet(s.logins(users, string(kind))...), nil
}

// FollowSource binds username so the service can feed follow.Check.
func (s *Service) FollowSource(username string) follow.Source {
	return followSource{service: s, username: username}
}

type followSource struct {
	service  *Service
	username string
}

func (f followSource) Users(ctx context.Context, kind follow.Kind) (follow.Set, error) {
	return f.service.Users(ctx, f.username, kind)
}

// logins extracts login names, skipping entries without one.
func (s *Service) logins(users []User, source string) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u.Login == nil {
			s.logger.Warn().Str("source", source).Msg("Entry without login, skipping")
			continue
		}
		out = append(out, *u.Login)
	}
	return out
}

func (s *Service) userURL(username, listing string) string {
	return s.listURL(s.config.BaseURL + "/users/" + url.PathEscape(username) + "/" + listing)
}

// listURL adds per_page to a listing URL unless it already carries one.
func (s *Service) listURL(raw string) string {
	if raw == "" || s.config.PerPage == 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("per_page") != "" {
		return raw
	}
	q.Set("per_page", strconv.Itoa(s.config.PerPage))
	u.RawQuery = q.Encode()
	return u.String()
}
