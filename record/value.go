package record

import "strconv"

// ValueType tags the concrete type held by a Value.
type ValueType int

const (
	// TypeFloat is a float64 value.
	TypeFloat ValueType = iota
	// TypeInt is an int64 value.
	TypeInt
	// TypeBool is a bool value.
	TypeBool
	// TypeText is a string value.
	TypeText
)

// String returns the canonical name of the value type, as stored in
// container attributes.
func (t ValueType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar: one of float64, int64, bool, or string.
// Its String form is canonical and feeds identities and fingerprints, so it
// must stay deterministic across processes.
type Value struct {
	t ValueType
	f float64
	i int64
	b bool
	s string
}

// Float wraps a float64.
func Float(v float64) Value { return Value{t: TypeFloat, f: v} }

// Int wraps an int64.
func Int(v int64) Value { return Value{t: TypeInt, i: v} }

// Bool wraps a bool.
func Bool(v bool) Value { return Value{t: TypeBool, b: v} }

// Text wraps a string.
func Text(v string) Value { return Value{t: TypeText, s: v} }

// Type returns the value's type tag.
func (v Value) Type() ValueType { return v.t }

// Float64 returns the float value; zero for other types.
func (v Value) Float64() float64 { return v.f }

// Int64 returns the int value; zero for other types.
func (v Value) Int64() int64 { return v.i }

// Bool returns the bool value; false for other types.
func (v Value) Bool() bool { return v.b }

// Text returns the string value; empty for other types.
func (v Value) Text() string { return v.s }

// String renders the canonical textual form.
func (v Value) String() string {
	switch v.t {
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeText:
		return v.s
	default:
		return ""
	}
}

// Equal reports whether two values have the same type and content.
func (v Value) Equal(o Value) bool {
	return v == o
}

// Native returns the value as the primitive type a foreign scalar slot
// holds: float64, int64, bool, or string.
func (v Value) Native() any {
	switch v.t {
	case TypeFloat:
		return v.f
	case TypeInt:
		return v.i
	case TypeBool:
		return v.b
	case TypeText:
		return v.s
	default:
		return nil
	}
}
