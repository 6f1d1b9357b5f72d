package foreign

import (
	"errors"
	"fmt"
)

// Sentinel errors for struct view operations.
var (
	ErrUnknownSlot = errors.New("foreign: unknown slot")
	ErrSlotKind    = errors.New("foreign: wrong slot kind")
)

// SlotKind distinguishes the three slot layouts a native struct can carry.
type SlotKind int

const (
	// SlotScalar holds a primitive value (numeric or bool).
	SlotScalar SlotKind = iota
	// SlotText holds a NUL-terminated text buffer owned elsewhere.
	SlotText
	// SlotPointer holds a binding to an Array buffer.
	SlotPointer
)

// Slot declares one named slot of a struct layout.
type Slot struct {
	Name string
	Kind SlotKind
}

// Struct is a borrowed view over buffers owned by a record or arena, laid
// out the way the native routine expects. It never owns memory: pointer
// slots reference Arrays, text slots reference arena buffers.
//
// Contract:
// - Ownership: exactly one record owns a Struct at a time; it must not be
//   shared across records.
// - Concurrency: a Struct is a single mutable view; calls that mutate or
//   pass it to native code must be serialized by the caller.
type Struct struct {
	name     string
	order    []string
	kinds    map[string]SlotKind
	scalars  map[string]any
	texts    map[string][]byte
	pointers map[string]*Array
}

// NewStruct creates an empty view with the given layout.
func NewStruct(name string, slots []Slot) *Struct {
	s := &Struct{
		name:     name,
		kinds:    make(map[string]SlotKind, len(slots)),
		scalars:  make(map[string]any),
		texts:    make(map[string][]byte),
		pointers: make(map[string]*Array),
	}
	for _, sl := range slots {
		s.order = append(s.order, sl.Name)
		s.kinds[sl.Name] = sl.Kind
		if sl.Kind == SlotPointer {
			s.pointers[sl.Name] = nil
		}
	}
	return s
}

// Name returns the native struct name of this layout.
func (s *Struct) Name() string { return s.name }

// SlotNames returns slot names in declaration order.
func (s *Struct) SlotNames() []string {
	return append([]string(nil), s.order...)
}

// KindOf returns the kind of a slot.
func (s *Struct) KindOf(name string) (SlotKind, bool) {
	k, ok := s.kinds[name]
	return k, ok
}

// SetScalar stores a primitive value into a scalar slot.
func (s *Struct) SetScalar(name string, v any) error {
	if err := s.check(name, SlotScalar); err != nil {
		return err
	}
	s.scalars[name] = v
	return nil
}

// Scalar reads a scalar slot.
func (s *Struct) Scalar(name string) (any, bool) {
	v, ok := s.scalars[name]
	return v, ok
}

// SetText points a text slot at a NUL-terminated buffer. The buffer must
// stay alive (arena-owned) for as long as the view is in use.
func (s *Struct) SetText(name string, buf []byte) error {
	if err := s.check(name, SlotText); err != nil {
		return err
	}
	s.texts[name] = buf
	return nil
}

// Text reads a text slot back as a string, without the trailing NUL.
func (s *Struct) Text(name string) (string, bool) {
	buf, ok := s.texts[name]
	if !ok {
		return "", false
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), true
		}
	}
	return string(buf), true
}

// Bind points a pointer slot at an array buffer.
func (s *Struct) Bind(name string, a *Array) error {
	if err := s.check(name, SlotPointer); err != nil {
		return err
	}
	s.pointers[name] = a
	return nil
}

// Array returns the array bound to a pointer slot, or nil if unbound.
func (s *Struct) Array(name string) *Array {
	return s.pointers[name]
}

// Unbound lists pointer slots that have no array bound, in declaration
// order. The native routine must never see a struct with unbound slots.
func (s *Struct) Unbound() []string {
	var missing []string
	for _, name := range s.order {
		if s.kinds[name] == SlotPointer && s.pointers[name] == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func (s *Struct) check(name string, want SlotKind) error {
	k, ok := s.kinds[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSlot, s.name, name)
	}
	if k != want {
		return fmt.Errorf("%w: %s.%s", ErrSlotKind, s.name, name)
	}
	return nil
}
