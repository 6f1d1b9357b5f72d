package foreign

import "fmt"

// Dtype is the element datatype of a foreign array.
type Dtype int

const (
	// Float32 is a 4-byte IEEE-754 float element.
	Float32 Dtype = iota
	// Float64 is an 8-byte IEEE-754 float element.
	Float64
	// Int32 is a 4-byte signed integer element.
	Int32
)

// Size returns the element size in bytes.
func (d Dtype) Size() int {
	switch d {
	case Float32, Int32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// String returns the canonical name of the dtype, as stored in containers.
func (d Dtype) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// ParseDtype parses a canonical dtype name.
func ParseDtype(s string) (Dtype, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "int32":
		return Int32, nil
	default:
		return 0, fmt.Errorf("foreign: unknown dtype %q", s)
	}
}
