package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/github-user-analytics/pkg/client"
	"github.com/Sternrassler/github-user-analytics/pkg/follow"
	"github.com/Sternrassler/github-user-analytics/pkg/github"
	"github.com/Sternrassler/github-user-analytics/pkg/logging"
	"github.com/Sternrassler/github-user-analytics/pkg/metrics"
	"github.com/Sternrassler/github-user-analytics/pkg/pagination"
	"github.com/Sternrassler/github-user-analytics/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. GH_ANALYTICS_TOKEN.
const envPrefix = "GH_ANALYTICS"

// options is the resolved command configuration.
type options struct {
	User           string
	Token          string
	BaseURL        string
	UserAgent      string
	MaxConcurrency int
	RPS            float64
	PerPage        int
	Conditional    bool
	RedisURL       string
	MetricsAddr    string
	LogLevel       string
	Pretty         bool
	Format         string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(viper.New())
}

// newRootCmdWith binds the flags and environment into v.
func newRootCmdWith(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gh-analytics",
		Short: "Report repositories, stargazers and follow status of a GitHub account",
		Long: `gh-analytics lists the public repositories of a GitHub account with their
stargazers, then the accounts it follows that do not follow back and the
followers it does not follow.

Every flag can also be set through the environment with the GH_ANALYTICS_
prefix, e.g. GH_ANALYTICS_TOKEN or GH_ANALYTICS_REDIS_URL.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(v)
			if err != nil {
				return err
			}
			if len(args) > 0 && opts.User == "" {
				opts.User = args[0]
			}
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
		Args: cobra.MaximumNArgs(1),
	}

	flags := cmd.Flags()
	flags.StringP("user", "u", "", "GitHub username (prompted when empty)")
	flags.String("token", "", "personal access token (raises the rate limit)")
	flags.String("base-url", github.DefaultBaseURL, "GitHub REST API base URL")
	flags.String("user-agent", "gh-analytics/"+version, "User-Agent sent with every request")
	flags.Int("max-concurrency", 0, "maximum concurrent stargazer fetches (0 = unbounded)")
	flags.Float64("rps", 0, "client-side request pacing in requests per second (0 = off)")
	flags.Int("per-page", 100, "page size for listings (1-100, 0 = server default)")
	flags.Bool("conditional-requests", false, "revalidate repeated URLs with ETags (only pays off for repeated fetches)")
	flags.String("redis-url", "", "share the rate limit budget through Redis (redis://host:6379/0)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("pretty", true, "human-readable logs instead of JSON")
	flags.String("format", "table", "report format (table, plain)")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func loadOptions(v *viper.Viper) (options, error) {
	opts := options{
		User:           strings.TrimSpace(v.GetString("user")),
		Token:          v.GetString("token"),
		BaseURL:        v.GetString("base-url"),
		UserAgent:      v.GetString("user-agent"),
		MaxConcurrency: v.GetInt("max-concurrency"),
		RPS:            v.GetFloat64("rps"),
		PerPage:        v.GetInt("per-page"),
		Conditional:    v.GetBool("conditional-requests"),
		RedisURL:       v.GetString("redis-url"),
		MetricsAddr:    v.GetString("metrics-addr"),
		LogLevel:       v.GetString("log-level"),
		Pretty:         v.GetBool("pretty"),
		Format:         v.GetString("format"),
	}

	if opts.MaxConcurrency < 0 {
		return opts, fmt.Errorf("max-concurrency must be >= 0 (got %d)", opts.MaxConcurrency)
	}
	if opts.Format != formatTable && opts.Format != formatPlain {
		return opts, fmt.Errorf("unknown format %q (want %s or %s)", opts.Format, formatTable, formatPlain)
	}
	if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
		return opts, err
	}
	return opts, nil
}

// run wires the budget, client and service and prints the report.
func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	level, _ := logging.ParseLevel(opts.LogLevel)
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Pretty = opts.Pretty
	logging.Setup(logCfg)
	logger := logging.NewLogger("cli")

	if opts.User == "" {
		user, err := promptUser(in, out)
		if err != nil {
			return err
		}
		opts.User = user
	}

	if opts.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	store, closeStore, err := newStore(ctx, opts.RedisURL)
	if err != nil {
		return err
	}
	defer closeStore()

	clientCfg := clientConfig(opts)
	httpClient := &http.Client{Timeout: clientCfg.Timeout}
	probe := ratelimit.NewHTTPProbe(httpClient, strings.TrimRight(opts.BaseURL, "/")+"/rate_limit", clientCfg.Header())
	budget := ratelimit.NewBudget(store, probe, ratelimit.DefaultConfig(), logging.NewLogger("ratelimit"))

	ghClient, err := client.New(clientCfg, budget)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	ghClient.SetHTTPClient(httpClient)

	svcCfg := github.DefaultConfig()
	svcCfg.BaseURL = opts.BaseURL
	svcCfg.PerPage = opts.PerPage
	svcCfg.Aggregate = pagination.Config{MaxConcurrency: opts.MaxConcurrency}
	svc, err := github.NewService(ghClient, svcCfg)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	logRateLimitStatus(ctx, budget)

	repos, err := svc.Repositories(ctx, opts.User)
	if err != nil {
		logger.Error().Err(err).Str("user", opts.User).Msg("Repository listing failed")
		repos = nil
	}
	if err := writeRepositories(out, repos, opts.Format); err != nil {
		return err
	}

	status, err := follow.Check(ctx, svc.FollowSource(opts.User))
	if err != nil {
		logger.Error().Err(err).Str("user", opts.User).Msg("Follow check incomplete")
	}
	return writeFollowStatus(out, status)
}

// clientConfig maps the options onto the requester configuration. Each URL
// is fetched once per run, so the ETag cache stays off unless asked for.
func clientConfig(opts options) client.Config {
	cfg := client.DefaultConfig(opts.UserAgent)
	cfg.Token = opts.Token
	cfg.RequestsPerSecond = opts.RPS
	cfg.ConditionalRequests = opts.Conditional
	return cfg
}

// newStore returns the budget store: Redis when an URL is given, else memory.
func newStore(ctx context.Context, redisURL string) (ratelimit.Store, func(), error) {
	if redisURL == "" {
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
	}

	log.Info().Str("addr", redisOpts.Addr).Msg("Sharing rate limit budget through Redis")
	return ratelimit.NewRedisStore(rdb), func() { rdb.Close() }, nil
}

// logRateLimitStatus reports the window before any work starts.
func logRateLimitStatus(ctx context.Context, budget *ratelimit.Budget) {
	w, err := budget.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read rate limit status")
		return
	}
	log.Info().
		Int("remaining", w.Remaining).
		Int("limit", w.Limit).
		Time("reset_at", w.ResetAt.Local()).
		Msg("Rate limit status")
}

func promptUser(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your GitHub username: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read username: %w", err)
	}
	user := strings.TrimSpace(line)
	if user == "" {
		return "", errors.New("username is required")
	}
	return user, nil
}
