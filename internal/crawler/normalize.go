package crawler

import "strings"

// Normalize canonicalizes a URL into the key used for deduplication:
// fragment and query string are dropped, then every trailing slash.
// An empty path normalizes to the empty string.
func Normalize(raw string) string {
	key, _, _ := strings.Cut(raw, "#")
	key, _, _ = strings.Cut(key, "?")
	return strings.TrimRight(key, "/")
}
