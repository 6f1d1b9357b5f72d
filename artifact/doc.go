// Package artifact implements artifact records: the cached outputs of one
// native computation. An artifact record composes two parameter records
// (domain and model), owns the array buffers the native routine fills,
// derives a content fingerprint from its composing records, and persists or
// restores itself through a container adapter under the cache filename
// contract.
package artifact
