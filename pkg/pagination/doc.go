// Package pagination walks Link-header paginated GitHub listings and fans out
// per-item sub-listings under a bounded worker pool.
//
// GitHub paginates with a Link header carrying `<url>; rel="next"`. A chain is
// inherently sequential: each page names the next one. Independent chains
// (for example the stargazers of every repository) run concurrently.
//
// Example usage:
//
//	repos, err := pagination.Collect[Repository](ctx, ghClient, "https://api.github.com/users/octocat/repos")
//	if err != nil {
//		// first page failed: nothing found
//	}
//
//	items := pagination.Aggregate[Repository, User](ctx, ghClient, repos,
//		func(r Repository) string { return r.StargazersURL },
//		pagination.DefaultConfig())
//
// Collect:
//   - Follows rel="next" until a page omits it
//   - Returns partial results when a later page fails
//   - Fails only when the first page fails
//   - Keeps no cursor state between calls
//
// Aggregate:
//   - Runs one Collect per parent, at most MaxConcurrency at a time (0 = unbounded)
//   - Preserves parent order regardless of completion order
//   - Degrades a failed parent to empty children without affecting siblings
package pagination
