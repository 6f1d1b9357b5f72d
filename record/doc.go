// Package record implements parameter records: value objects of named
// scalar, text, and bool fields with per-kind defaults, a canonical identity
// that excludes volatile fields (random seeds), and on-demand
// materialization into the foreign struct layout a native routine consumes.
package record
