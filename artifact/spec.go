package artifact

import (
	"github.com/jonwraymond/boxcache/foreign"
	"github.com/jonwraymond/boxcache/record"
)

// DefaultExt is the container file extension used when a Spec does not set
// its own. Part of the cache filename contract.
const DefaultExt = "box"

// ShapeFunc supplies the default shape for an array field. The policy is
// record-kind-specific (typically derived from the domain parameters, e.g. a
// cubic grid of the domain size), so concrete kinds provide it, not this
// package.
type ShapeFunc func(domain *record.Record) []int

// CubeOf returns a ShapeFunc producing a cubic grid whose edge length is the
// named domain field.
func CubeOf(field string) ShapeFunc {
	return func(domain *record.Record) []int {
		v, ok := domain.Get(field)
		if !ok {
			return nil
		}
		n := int(v.Int64())
		if n <= 0 {
			return nil
		}
		return []int{n, n, n}
	}
}

// ArrayField declares one array output of an artifact kind.
type ArrayField struct {
	Name  string
	Dtype foreign.Dtype
	// Shape supplies the allocation shape; a nil func or nil shape leaves
	// the field unbound, which EnsureArrays reports as ErrStructInvalid.
	Shape ShapeFunc
}

// ScalarField declares one primitive output of an artifact kind, copied back
// out of the foreign struct after the native call.
type ScalarField struct {
	Name string
}

// Spec defines an artifact record kind. The name must match the native
// struct name and is also the dataset group name in persisted containers.
// Specs are authored statically; fields are never discovered at runtime.
type Spec struct {
	Name    string
	Arrays  []ArrayField
	Scalars []ScalarField

	// Ext overrides the container file extension; empty means DefaultExt.
	Ext string
}

// ArrayField looks up an array field by name.
func (s *Spec) ArrayField(name string) (ArrayField, bool) {
	for _, f := range s.Arrays {
		if f.Name == name {
			return f, true
		}
	}
	return ArrayField{}, false
}

// ScalarField looks up a scalar field by name.
func (s *Spec) ScalarField(name string) (ScalarField, bool) {
	for _, f := range s.Scalars {
		if f.Name == name {
			return f, true
		}
	}
	return ScalarField{}, false
}

func (s *Spec) ext() string {
	if s.Ext != "" {
		return s.Ext
	}
	return DefaultExt
}

// slots translates the field tables into the foreign struct layout: one
// pointer slot per array, one scalar slot per primitive.
func (s *Spec) slots() []foreign.Slot {
	slots := make([]foreign.Slot, 0, len(s.Arrays)+len(s.Scalars))
	for _, f := range s.Arrays {
		slots = append(slots, foreign.Slot{Name: f.Name, Kind: foreign.SlotPointer})
	}
	for _, f := range s.Scalars {
		slots = append(slots, foreign.Slot{Name: f.Name, Kind: foreign.SlotScalar})
	}
	return slots
}
