// Package cache provides an in-process cache of GitHub API responses used to
// make conditional requests.
//
// GitHub answers a request carrying If-None-Match (ETag) or If-Modified-Since
// with 304 Not Modified when the resource is unchanged, and a 304 does not
// count against the core rate limit. Walking a listing a second time in the
// same process therefore costs no budget for unchanged pages.
//
// Entries live only as long as the Manager; nothing is persisted across runs.
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.DefaultMaxEntries)
//
//	key := cache.Key("https://api.github.com/users/octocat/repos?per_page=100")
//	if entry, ok := manager.Get(key); ok && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
//	// After a 200 OK:
//	manager.Set(key, cache.NewEntry(resp, body))
//
// # Metrics
//
//   - gh_cache_hits_total - 304 responses served from cache
//   - gh_cache_misses_total - lookups without an entry
//   - gh_cache_entries - entries currently held
//   - gh_cache_evictions_total - entries dropped to stay under the size bound
package cache
