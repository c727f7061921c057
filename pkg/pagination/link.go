package pagination

import (
	"net/http"
	"net/url"
	"strings"
)

// NextLink returns the URL of the rel="next" entry in a Link header value,
// or "" if there is none. Entries are comma-separated `<url>; rel="value"`.
func NextLink(header string) string {
	for _, entry := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(entry, ";")
		if !ok {
			continue
		}
		target = strings.TrimSpace(target)
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		if hasRel(params, "next") {
			return strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
		}
	}
	return ""
}

// hasRel reports whether the parameter list contains rel=<want>. A rel value
// may hold several space-separated relation types.
func hasRel(params, want string) bool {
	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
			if strings.EqualFold(rel, want) {
				return true
			}
		}
	}
	return false
}

// nextURL resolves the next page of current from its response headers.
// Relative references are resolved against current.
func nextURL(current string, h http.Header) string {
	next := NextLink(strings.Join(h.Values("Link"), ","))
	if next == "" {
		return ""
	}
	ref, err := url.Parse(next)
	if err != nil {
		return ""
	}
	base, err := url.Parse(current)
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
