package record

import (
	"strings"

	"github.com/jonwraymond/boxcache/foreign"
	"github.com/jonwraymond/boxcache/observe"
)

// VolatilePrefix marks fields that are excluded from identity comparison but
// still carried in filenames and persisted attributes (random seeds).
const VolatilePrefix = "RANDOM_SEED"

// SeedKey is the well-known attribute key the domain record's seed is
// persisted under; restore reads it back explicitly.
const SeedKey = "RANDOM_SEED"

// IsVolatile reports whether a field name follows the volatile convention.
func IsVolatile(name string) bool {
	return strings.HasPrefix(name, VolatilePrefix)
}

// Kind is the semantic type of a record field.
type Kind int

const (
	// KindScalar is a numeric field (float or int valued).
	KindScalar Kind = iota
	// KindText is a string field, materialized as a NUL-terminated buffer.
	KindText
	// KindBool is a boolean field.
	KindBool
	// KindArray is an array field; parameter records never carry these,
	// artifact records do.
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// FieldSpec describes one field of a record kind: name, semantic kind and,
// for array fields, the element datatype. Pure metadata, authored statically
// per record kind.
type FieldSpec struct {
	Name  string
	Kind  Kind
	Dtype foreign.Dtype
}

// AdjustFunc is a record-kind-specific post-construction adjustment. It may
// rewrite fields in place (derived fields) and must return an error when the
// fields cannot be reconciled.
type AdjustFunc func(fields map[string]Value) error

// Spec defines a parameter record kind: its name (which must match the
// native struct name), its field table, class-wide defaults, and an optional
// adjustment hook.
//
// Contract:
// - Immutability: a Spec must not be mutated after records are built from it.
// - Defaults: every field must be covered by a default or a construction
//   override, or construction fails.
type Spec struct {
	Name     string
	Fields   []FieldSpec
	Defaults map[string]Value
	Adjust   AdjustFunc

	// Logger receives non-fatal warnings (rejected update keys). Nil is
	// valid and silences them.
	Logger observe.Logger
}

// Field looks up a field spec by name.
func (s *Spec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns field names in declaration order.
func (s *Spec) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// slots translates the field table into the foreign struct layout.
func (s *Spec) slots() []foreign.Slot {
	slots := make([]foreign.Slot, 0, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case KindText:
			slots = append(slots, foreign.Slot{Name: f.Name, Kind: foreign.SlotText})
		default:
			slots = append(slots, foreign.Slot{Name: f.Name, Kind: foreign.SlotScalar})
		}
	}
	return slots
}
