package cache

import (
	"regexp"
	"strconv"
)

// fileNamePattern decomposes a cache filename built by FileName. The seed
// component admits a sign so that every FileName output parses back.
var fileNamePattern = regexp.MustCompile(`^(.+)_([0-9a-f]{32})_r(-?\d+)\.([^.]+)$`)

// Entry is a cache filename decomposed into its contract components.
type Entry struct {
	Kind        string
	Fingerprint string
	Seed        int64
	Ext         string
}

// ParseFileName decomposes a filename following the cache contract
// <Kind>_<32-hex-fingerprint>_r<seed>.<ext>. Returns false for names that
// do not follow it.
func ParseFileName(name string) (Entry, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return Entry{}, false
	}
	seed, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Kind:        m[1],
		Fingerprint: m[2],
		Seed:        seed,
		Ext:         m[4],
	}, true
}
