package container

import (
	"errors"

	"github.com/jonwraymond/boxcache/foreign"
	"github.com/jonwraymond/boxcache/record"
)

// ErrCorrupt marks a container whose contents cannot be decoded: missing
// tables, undecodable rows, or datasets that do not match their declared
// dtype. Callers treat it as a cache miss, never as data to repair.
var ErrCorrupt = errors.New("container: corrupt container")

// ErrReadOnly is returned when a write is attempted on a read handle.
var ErrReadOnly = errors.New("container: handle is read-only")

// Adapter is the capability consumed by artifact records to persist and
// restore themselves. Implementations define the on-disk format; callers
// only see groups, datasets, and attributes.
//
// Contract:
// - Handles must be released on all exit paths, including failure.
// - OpenOrCreate replaces any existing container at path; the replacement
//   must be atomic so readers never observe a torn file.
type Adapter interface {
	// OpenOrCreate opens a writable handle. The container becomes visible
	// at path only when Close succeeds with no prior write error.
	OpenOrCreate(path string) (Handle, error)

	// Open opens an existing container for reading.
	Open(path string) (Handle, error)
}

// Handle is an open container.
type Handle interface {
	// WriteAttrGroup stores a full attribute mapping under a group name.
	WriteAttrGroup(group string, attrs map[string]record.Value) error

	// WriteDataset stores an array as a named dataset within a group.
	WriteDataset(group, name string, a *foreign.Array) error

	// ReadAttrGroup returns the attribute mapping of a group. An absent
	// group yields an empty mapping; callers decide what is mandatory.
	ReadAttrGroup(group string) (map[string]record.Value, error)

	// ReadDataset copies a dataset into dst in place. The destination
	// buffer is never reallocated, so foreign bindings stay valid.
	// Returns ErrCorrupt when the dataset is absent or does not match
	// dst's dtype and size.
	ReadDataset(group, name string, dst *foreign.Array) error

	// GroupKeys lists the dataset names of a group, sorted.
	GroupKeys(group string) ([]string, error)

	// AttrKeys lists the attribute names of a group, sorted.
	AttrKeys(group string) ([]string, error)

	// Close releases the handle. For write handles it publishes the
	// container atomically, unless a write failed, in which case the
	// partial container is discarded and the first write error returned.
	Close() error
}
