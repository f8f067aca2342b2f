// Package urlrank implements a total order on URLs by canonicity, used to
// decide which of two live documents sharing a checksum/pid should win.
package urlrank

import "strings"

// Compare returns negative if a is more canonical than b, positive if b is
// more canonical, and zero only when a == b. Rules, in priority order:
//
//  1. a URL without a query string is more canonical than one with.
//  2. fewer path segments (before any "?") wins.
//  3. shorter total length wins.
//  4. lexicographic byte comparison.
func Compare(a, b string) int {
	if a == b {
		return 0
	}

	aHasQuery, bHasQuery := strings.Contains(a, "?"), strings.Contains(b, "?")
	if aHasQuery != bHasQuery {
		if aHasQuery {
			return 1
		}
		return -1
	}

	aSegs, bSegs := pathSegments(a), pathSegments(b)
	if aSegs != bSegs {
		if aSegs < bSegs {
			return -1
		}
		return 1
	}

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}

	return strings.Compare(a, b)
}

// pathSegments counts "/" occurrences in the portion of the URL before
// its first "?".
func pathSegments(u string) int {
	path := u
	if idx := strings.IndexByte(u, '?'); idx >= 0 {
		path = u[:idx]
	}
	return strings.Count(path, "/")
}

// MoreCanonical reports whether a is strictly more canonical than b.
func MoreCanonical(a, b string) bool {
	return Compare(a, b) < 0
}
