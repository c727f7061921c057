package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key generates a deterministic cache key for a request URL.
// Query parameters are sorted so that equivalent URLs share one entry.
//
// Example:
//
//	gh:https://api.github.com/users/octocat/repos?page=2&per_page=100
func Key(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "gh:" + rawURL
	}

	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sort.Strings(values)
		for _, v := range values {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}

	u.RawQuery = strings.Join(parts, "&")
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	return "gh:" + u.String()
}
