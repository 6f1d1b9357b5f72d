package record

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/boxcache/foreign"
	"github.com/jonwraymond/boxcache/observe"
)

// ErrConstruction is returned when a record cannot be fully initialized:
// a field has no default and no override, an override has the wrong type,
// or the post-construction adjustment cannot reconcile the fields.
var ErrConstruction = errors.New("record: construction failed")

// Record is a parameter record: a fully initialized set of named fields
// built from a Spec's defaults plus caller overrides. Records are never
// partially valid.
//
// Contract:
// - Concurrency: a Record is single-owner mutable state; callers serialize
//   Update/Materialize with any use of the materialized view.
// - Identity: two records with equal Identity are interchangeable for cache
//   purposes even if their volatile fields differ.
type Record struct {
	spec   *Spec
	fields map[string]Value

	// view is the cached foreign binding; Update and SetSeed invalidate it
	// because bound buffers cannot be resized in place.
	view  *foreign.Struct
	arena *foreign.Arena
}

// New builds a record from the spec's defaults merged with overrides.
// Overrides win over defaults. Override keys outside the field table are
// rejected with a warning, not an error.
func New(spec *Spec, overrides map[string]Value) (*Record, error) {
	fields := make(map[string]Value, len(spec.Fields))
	for _, f := range spec.Fields {
		if f.Kind == KindArray {
			return nil, fmt.Errorf("%w: %s.%s: array fields belong to artifact records", ErrConstruction, spec.Name, f.Name)
		}
		v, ok := overrides[f.Name]
		if !ok {
			v, ok = spec.Defaults[f.Name]
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s has no default and no override", ErrConstruction, spec.Name, f.Name)
		}
		if err := checkType(f, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
		}
		fields[f.Name] = v
	}

	r := &Record{spec: spec, fields: fields}
	r.warnRejected("construct", rejectedKeys(spec, overrides))

	if spec.Adjust != nil {
		if err := spec.Adjust(r.fields); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConstruction, spec.Name, err)
		}
	}
	return r, nil
}

// Spec returns the record's kind definition.
func (r *Record) Spec() *Spec { return r.spec }

// Get returns the value of a field.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Fields returns a copy of the full field set.
func (r *Record) Fields() map[string]Value {
	out := make(map[string]Value, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Update merges overrides into the existing fields using the same rule as
// construction. Unrecognized keys are returned (sorted) and logged as a
// warning; recognized keys are still applied. The update is all-or-nothing
// for recognized keys: a type error or a failed adjustment leaves the record
// unchanged. A successful update invalidates the cached foreign binding.
func (r *Record) Update(overrides map[string]Value) (rejected []string, err error) {
	staged := make(map[string]Value, len(r.fields))
	for k, v := range r.fields {
		staged[k] = v
	}

	for _, f := range r.spec.Fields {
		v, ok := overrides[f.Name]
		if !ok {
			continue
		}
		if err := checkType(f, v); err != nil {
			return nil, err
		}
		staged[f.Name] = v
	}

	if r.spec.Adjust != nil {
		if err := r.spec.Adjust(staged); err != nil {
			return nil, fmt.Errorf("%s: adjust: %w", r.spec.Name, err)
		}
	}

	r.fields = staged
	r.invalidate()

	rejected = rejectedKeys(r.spec, overrides)
	r.warnRejected("update", rejected)
	return rejected, nil
}

// Identity returns the canonical representation of all non-volatile fields,
// sorted by name: SpecName(a:1; b:2; ...). Records equal under Identity are
// interchangeable for cache purposes regardless of their seeds; artifact
// fingerprints are computed over this form.
func (r *Record) Identity() string {
	return r.render(false)
}

// Repr returns the full-field representation, volatile fields included.
// Unlike Identity it distinguishes seed variants, which makes it the form
// for logs and diagnostics.
func (r *Record) Repr() string {
	return r.render(true)
}

// Equal reports identity equality: volatile fields are ignored.
func (r *Record) Equal(o *Record) bool {
	if o == nil {
		return false
	}
	return r.Identity() == o.Identity()
}

// HashKey returns the string to key maps by; identical to Identity.
func (r *Record) HashKey() string { return r.Identity() }

// Seed returns the value of the volatile seed field, if the record has one.
func (r *Record) Seed() (int64, bool) {
	for _, f := range r.spec.Fields {
		if IsVolatile(f.Name) {
			return r.fields[f.Name].Int64(), true
		}
	}
	return 0, false
}

// SetSeed overwrites the volatile seed field. Restore uses this to adopt the
// seed actually found on disk. The foreign binding is invalidated.
func (r *Record) SetSeed(seed int64) bool {
	for _, f := range r.spec.Fields {
		if IsVolatile(f.Name) {
			r.fields[f.Name] = Int(seed)
			r.invalidate()
			return true
		}
	}
	return false
}

// Materialize returns the foreign struct view with every field copied in.
// Text fields are backed by arena-owned NUL-terminated buffers that stay
// alive until the next Update/SetSeed. The view is cached; repeated calls
// return the same binding.
func (r *Record) Materialize() (*foreign.Struct, error) {
	if r.view != nil {
		return r.view, nil
	}

	arena := foreign.NewArena()
	st := foreign.NewStruct(r.spec.Name, r.spec.slots())
	for _, f := range r.spec.Fields {
		v := r.fields[f.Name]
		var err error
		switch f.Kind {
		case KindText:
			err = st.SetText(f.Name, arena.CString(v.Text()))
		default:
			err = st.SetScalar(f.Name, v.Native())
		}
		if err != nil {
			return nil, fmt.Errorf("record: materialize %s: %w", r.spec.Name, err)
		}
	}

	r.arena = arena
	r.view = st
	return st, nil
}

// invalidate drops the cached binding; the arena is released so text
// buffers do not outlive the view that referenced them.
func (r *Record) invalidate() {
	if r.arena != nil {
		r.arena.Release()
	}
	r.arena = nil
	r.view = nil
}

func (r *Record) render(includeVolatile bool) string {
	parts := make([]string, 0, len(r.fields))
	for name, v := range r.fields {
		if !includeVolatile && IsVolatile(name) {
			continue
		}
		parts = append(parts, name+":"+v.String())
	}
	sort.Strings(parts)
	return r.spec.Name + "(" + strings.Join(parts, "; ") + ")"
}

func (r *Record) warnRejected(op string, rejected []string) {
	if len(rejected) == 0 || r.spec.Logger == nil {
		return
	}
	r.spec.Logger.Warn(context.Background(), "rejected unknown fields",
		observe.Field{Key: "record.kind", Value: r.spec.Name},
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "fields", Value: strings.Join(rejected, ",")},
	)
}

func rejectedKeys(spec *Spec, overrides map[string]Value) []string {
	var rejected []string
	for k := range overrides {
		if _, ok := spec.Field(k); !ok {
			rejected = append(rejected, k)
		}
	}
	sort.Strings(rejected)
	return rejected
}

func checkType(f FieldSpec, v Value) error {
	ok := false
	switch f.Kind {
	case KindScalar:
		ok = v.Type() == TypeFloat || v.Type() == TypeInt
	case KindText:
		ok = v.Type() == TypeText
	case KindBool:
		ok = v.Type() == TypeBool
	}
	if !ok {
		return fmt.Errorf("field %s: %s value not valid for %v field", f.Name, v.Type(), f.Kind)
	}
	return nil
}
