package artifact

import "errors"

// Sentinel errors for artifact lifecycle violations.
var (
	// ErrStructInvalid means an array field is still unbound after
	// initialization; the record must not reach the native routine.
	ErrStructInvalid = errors.New("artifact: record has uninitialized arrays")

	// ErrNotFilled guards reads of foreign memory before the native call or
	// a restore populated it.
	ErrNotFilled = errors.New("artifact: record has not been computed or restored")

	// ErrNotFound means no cached container matched; callers decide whether
	// to compute fresh.
	ErrNotFound = errors.New("artifact: no matching cached container")
)
