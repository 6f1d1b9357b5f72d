package cache

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// seedPattern matches the seed component of a cache filename (`_r<int>.`,
// sign included, so negative-seed entries stay searchable) for replacement
// with a glob wildcard in seed-insensitive search.
var seedPattern = regexp.MustCompile(`_r-?\d+\.`)

// Locator resolves fingerprint-derived filenames to existing cache files.
// A zero Dir means only the DefaultDir is searched. Both directories are
// explicit configuration; there is no ambient global cache path.
//
// Contract:
// - Misses are results, not errors: Find returns ("", false) and never fails
//   for an absent entry.
// - Concurrency: Locator is stateless and safe for concurrent use.
type Locator struct {
	// DefaultDir is the centrally managed cache directory, always searched
	// after any query-specific directory.
	DefaultDir string
}

// Query describes one lookup.
type Query struct {
	// Name is the fingerprint-derived filename (required).
	Name string
	// Dir is an optional directory searched before DefaultDir.
	Dir string
	// Explicit is an optional exact filename checked under Dir first.
	Explicit string
	// MatchSeed requires the seed component to match exactly; when false, a
	// missing exact match falls back to a seed-wildcard search.
	MatchSeed bool
}

// Find resolves a query using the search order: explicit path, fingerprint
// path under Dir, seed-insensitive match under Dir, then the same two steps
// under DefaultDir.
//
// When several seed variants exist, candidates are sorted and the
// lexicographically smallest path wins; for equal-width seeds that is the
// numerically smallest seed. This tie-break is deliberate: the match order
// must not depend on filesystem enumeration order.
func (l *Locator) Find(q Query) (string, bool) {
	if q.Dir != "" {
		if q.Explicit != "" {
			p := filepath.Join(q.Dir, q.Explicit)
			if fileExists(p) {
				return p, true
			}
		}
		if p, ok := findIn(q.Dir, q.Name, q.MatchSeed); ok {
			return p, ok
		}
	}
	return findIn(l.DefaultDir, q.Name, q.MatchSeed)
}

// Exists reports whether Find would succeed.
func (l *Locator) Exists(q Query) bool {
	_, ok := l.Find(q)
	return ok
}

func findIn(dir, name string, matchSeed bool) (string, bool) {
	if dir == "" || name == "" {
		return "", false
	}
	p := filepath.Join(dir, name)
	if fileExists(p) {
		return p, true
	}
	if matchSeed {
		return "", false
	}
	return findWithoutSeed(p)
}

// findWithoutSeed replaces the seed component of the path with a wildcard
// and returns the first match in sorted order.
func findWithoutSeed(path string) (string, bool) {
	pattern := seedPattern.ReplaceAllString(path, "_r*.")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
