package foreign

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrSizeMismatch is returned when raw data does not fit an array's buffer.
var ErrSizeMismatch = errors.New("foreign: data size does not match array buffer")

// Array is a flat, dtype-tagged array backed by a single owned byte buffer.
// The buffer is what crosses the native boundary; it is allocated once and
// filled in place so that any struct view bound to it stays valid.
type Array struct {
	dtype Dtype
	shape []int
	data  []byte
}

// NewArray allocates a zeroed array with the given dtype and shape.
func NewArray(dtype Dtype, shape ...int) *Array {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Array{
		dtype: dtype,
		shape: append([]int(nil), shape...),
		data:  make([]byte, n*dtype.Size()),
	}
}

// Dtype returns the element datatype.
func (a *Array) Dtype() Dtype { return a.dtype }

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.data) / a.dtype.Size()
}

// Bytes returns the raw backing buffer. Mutating it mutates the array.
func (a *Array) Bytes() []byte { return a.data }

// CopyFrom fills the buffer in place from raw bytes. The buffer is never
// reallocated, so existing struct-view bindings remain valid.
func (a *Array) CopyFrom(raw []byte) error {
	if len(raw) != len(a.data) {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrSizeMismatch, len(raw), len(a.data))
	}
	copy(a.data, raw)
	return nil
}

// Float32s returns the buffer viewed as []float32.
// Panics if the dtype is not Float32; that is a programming error.
func (a *Array) Float32s() []float32 {
	a.mustBe(Float32)
	if len(a.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&a.data[0])), a.Len())
}

// Float64s returns the buffer viewed as []float64.
func (a *Array) Float64s() []float64 {
	a.mustBe(Float64)
	if len(a.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&a.data[0])), a.Len())
}

// Int32s returns the buffer viewed as []int32.
func (a *Array) Int32s() []int32 {
	a.mustBe(Int32)
	if len(a.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&a.data[0])), a.Len())
}

func (a *Array) mustBe(d Dtype) {
	if a.dtype != d {
		panic(fmt.Sprintf("foreign: array is %s, accessed as %s", a.dtype, d))
	}
}
