// Package foreign models the externally defined binary layout a native
// compute routine consumes: flat arrays backed by owned byte buffers, and
// struct views that borrow those buffers for the duration of a call.
//
// Ownership is strict: an Arena (or the record that allocated an Array) owns
// every buffer; a Struct is only a view and must never outlive the owner.
package foreign
