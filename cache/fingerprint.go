package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// ReprSeparator joins the composing parameter-record representations before
// hashing. Part of the fingerprint contract; changing it invalidates every
// existing cache.
const ReprSeparator = "; "

// Fingerprinter derives a deterministic cache fingerprint from the identity
// representations of the parameter records that define a computation. Seed
// variants feed identical reprs, so they share a fingerprint.
//
// Contract:
// - Determinism: identical reprs must produce identical fingerprints across
//   processes and platforms.
// - Concurrency: implementations must be safe for concurrent use.
type Fingerprinter interface {
	// Fingerprint returns a fixed-width lowercase hex digest of the joined
	// representations.
	Fingerprint(reprs ...string) string
}

// MD5Fingerprinter is the default fingerprinter: 32 hex characters of
// md5 over the joined reprs. md5 is a content fingerprint here, not a
// security boundary, and its width is part of the filename contract.
type MD5Fingerprinter struct{}

// NewMD5Fingerprinter creates the default fingerprinter.
func NewMD5Fingerprinter() *MD5Fingerprinter {
	return &MD5Fingerprinter{}
}

// Fingerprint returns hex(md5(join(reprs, ReprSeparator))).
func (*MD5Fingerprinter) Fingerprint(reprs ...string) string {
	sum := md5.Sum([]byte(strings.Join(reprs, ReprSeparator)))
	return hex.EncodeToString(sum[:])
}

// FileName builds the cache filename stem for a record kind:
// <Kind>_<fingerprint>_r<seed>.<ext>. The seed is deliberately outside the
// fingerprint so that seed variants of the same parameters sit side by side.
// Negative seeds are formatted with their sign; ParseFileName and the
// seed-insensitive search both accept them.
func FileName(kind, fingerprint string, seed int64, ext string) string {
	return fmt.Sprintf("%s_%s_r%d.%s", kind, fingerprint, seed, ext)
}

// Ensure MD5Fingerprinter implements Fingerprinter
var _ Fingerprinter = (*MD5Fingerprinter)(nil)
