package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/github-user-analytics/pkg/follow"
	"github.com/Sternrassler/github-user-analytics/pkg/github"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	formatTable = "table"
	formatPlain = "plain"
)

const separator = "----------------------------------------"

// writeRepositories prints the repository report.
func writeRepositories(w io.Writer, repos []github.RepositoryInfo, format string) error {
	if len(repos) == 0 {
		_, err := fmt.Fprintln(w, "No repositories found or an error occurred.")
		return err
	}

	if format == formatPlain {
		var b strings.Builder
		b.WriteString("\n" + separator + "\n")
		for _, r := range repos {
			fmt.Fprintf(&b, "Repository: %s\n", r.Name)
			fmt.Fprintf(&b, "Stars: %d\n", r.Stars)
			fmt.Fprintf(&b, "Stargazers: %s\n", strings.Join(r.Stargazers, ", "))
			b.WriteString(separator + "\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Repository", "Stars", "Stargazers"})

	total := 0
	for _, r := range repos {
		t.AppendRow(table.Row{r.Name, r.Stars, strings.Join(r.Stargazers, ", ")})
		total += r.Stars
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d repositories", len(repos)), total, ""})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// writeFollowStatus prints both difference sets, one name per line.
func writeFollowStatus(w io.Writer, status follow.Status) error {
	var b strings.Builder
	b.WriteString("\nUsers not following back:\n")
	for _, name := range status.NotFollowingBack.Sorted() {
		b.WriteString(name + "\n")
	}
	b.WriteString("\nFollowers the account doesn't follow:\n")
	for _, name := range status.UniqueFollowers.Sorted() {
		b.WriteString(name + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
