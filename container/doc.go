// Package container provides the structured container abstraction artifacts
// persist into: an opaque key/value store of named groups holding datasets
// (arrays) and attributes (scalars), plus a SQLite-backed implementation
// with atomic publish semantics.
package container
