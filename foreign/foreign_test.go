package foreign

import (
	"testing"
)

func TestArray_AllocationAndLen(t *testing.T) {
	a := NewArray(Float32, 4, 4, 4)

	if got := a.Len(); got != 64 {
		t.Errorf("Len() = %d, want 64", got)
	}
	if got := len(a.Bytes()); got != 64*4 {
		t.Errorf("len(Bytes()) = %d, want %d", got, 64*4)
	}
	if got := a.Dtype(); got != Float32 {
		t.Errorf("Dtype() = %v, want Float32", got)
	}
}

func TestArray_TypedViewsShareBuffer(t *testing.T) {
	a := NewArray(Float64, 8)

	vals := a.Float64s()
	vals[3] = 2.5

	// A second view must observe the write: both alias the same buffer.
	if got := a.Float64s()[3]; got != 2.5 {
		t.Errorf("Float64s()[3] = %v, want 2.5", got)
	}
}

func TestArray_CopyFromFillsInPlace(t *testing.T) {
	a := NewArray(Int32, 4)
	before := a.Int32s()

	src := NewArray(Int32, 4)
	src.Int32s()[0] = 7
	src.Int32s()[3] = -1

	if err := a.CopyFrom(src.Bytes()); err != nil {
		t.Fatalf("CopyFrom() error = %v", err)
	}

	// The old view must still be valid: CopyFrom never reallocates.
	if before[0] != 7 || before[3] != -1 {
		t.Errorf("in-place copy not visible through prior view: %v", before)
	}
}

func TestArray_CopyFromSizeMismatch(t *testing.T) {
	a := NewArray(Float32, 4)

	err := a.CopyFrom(make([]byte, 3))
	if err == nil {
		t.Fatal("CopyFrom() with short buffer should fail")
	}
}

func TestArray_WrongDtypeAccessPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Float64s() on a Float32 array should panic")
		}
	}()
	NewArray(Float32, 2).Float64s()
}

func TestStruct_BindAndUnbound(t *testing.T) {
	s := NewStruct("InitialConditions", []Slot{
		{Name: "density", Kind: SlotPointer},
		{Name: "velocity", Kind: SlotPointer},
		{Name: "growth", Kind: SlotScalar},
	})

	unbound := s.Unbound()
	if len(unbound) != 2 {
		t.Fatalf("Unbound() = %v, want both pointer slots", unbound)
	}

	if err := s.Bind("density", NewArray(Float32, 8)); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	unbound = s.Unbound()
	if len(unbound) != 1 || unbound[0] != "velocity" {
		t.Errorf("Unbound() = %v, want [velocity]", unbound)
	}
}

func TestStruct_SlotKindEnforced(t *testing.T) {
	s := NewStruct("X", []Slot{
		{Name: "n", Kind: SlotScalar},
	})

	if err := s.Bind("n", NewArray(Float32, 1)); err == nil {
		t.Error("Bind() on a scalar slot should fail")
	}
	if err := s.Bind("missing", NewArray(Float32, 1)); err == nil {
		t.Error("Bind() on an unknown slot should fail")
	}
	if err := s.SetScalar("n", 3.0); err != nil {
		t.Errorf("SetScalar() error = %v", err)
	}
}

func TestStruct_TextRoundTrip(t *testing.T) {
	arena := NewArena()
	s := NewStruct("X", []Slot{
		{Name: "label", Kind: SlotText},
	})

	if err := s.SetText("label", arena.CString("planck18")); err != nil {
		t.Fatalf("SetText() error = %v", err)
	}

	got, ok := s.Text("label")
	if !ok || got != "planck18" {
		t.Errorf("Text() = %q, %v; want planck18, true", got, ok)
	}
}

func TestArena_CStringNulTerminated(t *testing.T) {
	arena := NewArena()

	buf := arena.CString("abc")
	if len(buf) != 4 || buf[3] != 0 {
		t.Errorf("CString() = %v, want NUL-terminated copy", buf)
	}
	if arena.Len() != 1 {
		t.Errorf("arena holds %d buffers, want 1", arena.Len())
	}

	arena.Release()
	if arena.Len() != 0 {
		t.Errorf("arena holds %d buffers after Release, want 0", arena.Len())
	}
}
