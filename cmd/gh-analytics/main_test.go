package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Sternrassler/github-user-analytics/internal/testutil"
	"github.com/Sternrassler/github-user-analytics/pkg/follow"
	"github.com/Sternrassler/github-user-analytics/pkg/github"
	"github.com/spf13/viper"
)

func TestWriteRepositories(t *testing.T) {
	repos := []github.RepositoryInfo{
		{Name: "hello-world", Stars: 2, Stargazers: []string{"ann", "bob"}},
		{Name: "spoon-knife", Stars: 0, Stargazers: []string{}},
	}

	tests := []struct {
		name     string
		repos    []github.RepositoryInfo
		format   string
		contains []string
	}{
		{
			name:     "table",
			repos:    repos,
			format:   formatTable,
			contains: []string{"Repository", "hello-world", "ann, bob", "spoon-knife", "2 repositories"},
		},
		{
			name:     "plain",
			repos:    repos,
			format:   formatPlain,
			contains: []string{"Repository: hello-world\nStars: 2\nStargazers: ann, bob\n", separator},
		},
		{
			name:     "empty",
			repos:    nil,
			format:   formatTable,
			contains: []string{"No repositories found or an error occurred."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeRepositories(&buf, tt.repos, tt.format); err != nil {
				t.Fatalf("writeRepositories() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestWriteFollowStatus(t *testing.T) {
	var buf bytes.Buffer
	status := follow.Status{
		NotFollowingBack: follow.NewSet("zed", "dee"),
		UniqueFollowers:  follow.NewSet("ann"),
	}

	if err := writeFollowStatus(&buf, status); err != nil {
		t.Fatalf("writeFollowStatus() error = %v", err)
	}

	want := "\nUsers not following back:\ndee\nzed\n\nFollowers the account doesn't follow:\nann\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPromptUser(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "octocat\n", want: "octocat"},
		{input: "  hubot  \n", want: "hubot"},
		{input: "no-newline", want: "no-newline"},
		{input: "\n", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := promptUser(strings.NewReader(tt.input), &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("promptUser() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("promptUser() = %q, want %q", got, tt.want)
			}
			if !strings.Contains(out.String(), "Enter your GitHub username") {
				t.Errorf("prompt not written: %q", out.String())
			}
		})
	}
}

func newMockAccount(t *testing.T) *testutil.MockGitHub {
	t.Helper()
	mock := testutil.NewMockGitHub()
	mock.SetPages("/users/octocat/repos",
		fmt.Sprintf(`[{"name":"hello-world","stargazers_count":1,"stargazers_url":"%s/repos/octocat/hello-world/stargazers"}]`, mock.URL()))
	mock.SetPages("/repos/octocat/hello-world/stargazers", testutil.Users("ann"))
	mock.SetPages("/users/octocat/followers", testutil.Users("ann", "bob"))
	mock.SetPages("/users/octocat/following", testutil.Users("bob", "cid"))
	return mock
}

func TestRootCmd_EndToEnd(t *testing.T) {
	mock := newMockAccount(t)
	defer mock.Close()

	t.Setenv("GH_ANALYTICS_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("octocat\n"))
	cmd.SetArgs([]string{"--base-url", mock.URL(), "--pretty=false", "--max-concurrency", "2"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"Enter your GitHub username",
		"hello-world",
		"Users not following back:\ncid\n",
		"Followers the account doesn't follow:\nann\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if n := mock.GetPathCount("/rate_limit"); n != 1 {
		t.Errorf("rate limit endpoint queried %d times, want 1 at startup", n)
	}
}

func TestRootCmd_UserFromEnvironment(t *testing.T) {
	mock := newMockAccount(t)
	defer mock.Close()

	t.Setenv("GH_ANALYTICS_USER", "octocat")
	t.Setenv("GH_ANALYTICS_BASE_URL", mock.URL())
	t.Setenv("GH_ANALYTICS_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--format", "plain", "--pretty=false"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.Contains(out.String(), "Enter your GitHub username") {
		t.Error("prompted although GH_ANALYTICS_USER is set")
	}
	if !strings.Contains(out.String(), "Repository: hello-world") {
		t.Errorf("plain report missing:\n%s", out.String())
	}
}

func TestRootCmd_NoRepositories(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/users/ghost/followers", "[]")
	mock.SetPages("/users/ghost/following", "[]")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ghost", "--base-url", mock.URL(), "--pretty=false", "--log-level", "error"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "No repositories found or an error occurred.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRootCmd_FollowListFailure(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/users/ghost/followers", testutil.Users("ann"))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ghost", "--base-url", mock.URL(), "--pretty=false", "--log-level", "error"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v, want the report despite the missing list", err)
	}
	for _, want := range []string{
		"No repositories found or an error occurred.",
		"Users not following back:\n",
		"Followers the account doesn't follow:\nann\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name            string
		opts            options
		wantConditional bool
	}{
		{name: "default", opts: options{UserAgent: "ua"}},
		{name: "conditional", opts: options{UserAgent: "ua", Conditional: true}, wantConditional: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := clientConfig(tt.opts)
			if cfg.ConditionalRequests != tt.wantConditional {
				t.Errorf("ConditionalRequests = %v, want %v", cfg.ConditionalRequests, tt.wantConditional)
			}
			if cfg.UserAgent != tt.opts.UserAgent {
				t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, tt.opts.UserAgent)
			}
		})
	}
}

func TestRootCmd_ConditionalRequestsFlag(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{args: nil, want: false},
		{args: []string{"--conditional-requests"}, want: true},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			v := viper.New()
			cmd := newRootCmdWith(v)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}
			opts, err := loadOptions(v)
			if err != nil {
				t.Fatalf("loadOptions() error = %v", err)
			}
			if opts.Conditional != tt.want {
				t.Errorf("Conditional = %v, want %v", opts.Conditional, tt.want)
			}
		})
	}
}

func TestRootCmd_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "format", args: []string{"--user", "x", "--format", "xml"}},
		{name: "log level", args: []string{"--user", "x", "--log-level", "trace"}},
		{name: "concurrency", args: []string{"--user", "x", "--max-concurrency", "-1"}},
		{name: "redis url", args: []string{"--user", "x", "--redis-url", "://bad", "--log-level", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			if err := cmd.ExecuteContext(context.Background()); err == nil {
				t.Error("Execute() expected error")
			}
		})
	}
}
