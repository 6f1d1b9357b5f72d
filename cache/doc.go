// Package cache implements the content-addressed naming and lookup side of
// the artifact cache: deterministic fingerprints over parameter-record
// representations, the cache filename contract, and on-disk lookup with
// optional seed-insensitive matching.
package cache
