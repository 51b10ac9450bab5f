// Package pathutil maps request paths to bounded metric labels.
package pathutil

import (
	"strings"
)

// UnmatchedPath is the label for every path the relay does not serve.
const UnmatchedPath = "/other"

// KnownPaths lists the routes served by the relay.
var KnownPaths = []string{
	"/api/polish",
	"/api/digest",
	"/api/rewrite",
	"/enhance",
	"/polish",
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(KnownPaths))
	for _, p := range KnownPaths {
		m[p] = struct{}{}
	}
	return m
}()

// NormalizePath returns path when it is a served route and UnmatchedPath
// otherwise, so scanners probing random URLs cannot grow label cardinality.
// Query strings and a trailing slash are ignored.
//
//	NormalizePath("/api/polish/")   // "/api/polish"
//	NormalizePath("/wp-login.php")  // "/other"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if _, ok := known[path]; ok {
		return path
	}
	return UnmatchedPath
}

// ExpectedCardinality is the number of distinct path labels NormalizePath
// can produce.
func ExpectedCardinality() int {
	return len(KnownPaths) + 1
}
