package record

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/boxcache/observe"
)

func domainSpec() *Spec {
	return &Spec{
		Name: "DomainParams",
		Fields: []FieldSpec{
			{Name: "HII_DIM", Kind: KindScalar},
			{Name: "BOX_LEN", Kind: KindScalar},
			{Name: "RANDOM_SEED", Kind: KindScalar},
		},
		Defaults: map[string]Value{
			"HII_DIM":     Int(64),
			"BOX_LEN":     Float(150),
			"RANDOM_SEED": Int(42),
		},
	}
}

func modelSpec() *Spec {
	return &Spec{
		Name: "ModelParams",
		Fields: []FieldSpec{
			{Name: "SIGMA_8", Kind: KindScalar},
			{Name: "TRANSFER", Kind: KindText},
			{Name: "USE_RSD", Kind: KindBool},
		},
		Defaults: map[string]Value{
			"SIGMA_8":  Float(0.81),
			"TRANSFER": Text("eisenstein-hu"),
			"USE_RSD":  Bool(false),
		},
	}
}

func TestNew_OverridesWinOverDefaults(t *testing.T) {
	r, err := New(domainSpec(), map[string]Value{"HII_DIM": Int(128)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := r.Fields()
	want := map[string]Value{
		"HII_DIM":     Int(128),
		"BOX_LEN":     Float(150),
		"RANDOM_SEED": Int(42),
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(Value{})); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_MissingDefaultFails(t *testing.T) {
	spec := &Spec{
		Name: "Partial",
		Fields: []FieldSpec{
			{Name: "known", Kind: KindScalar},
			{Name: "orphan", Kind: KindScalar},
		},
		Defaults: map[string]Value{"known": Int(1)},
	}

	if _, err := New(spec, nil); !errors.Is(err, ErrConstruction) {
		t.Errorf("New() error = %v, want ErrConstruction", err)
	}

	// An override can stand in for a missing default.
	if _, err := New(spec, map[string]Value{"orphan": Int(2)}); err != nil {
		t.Errorf("New() with override error = %v", err)
	}
}

func TestNew_WrongValueTypeFails(t *testing.T) {
	if _, err := New(domainSpec(), map[string]Value{"HII_DIM": Text("big")}); !errors.Is(err, ErrConstruction) {
		t.Errorf("New() error = %v, want ErrConstruction", err)
	}
}

func TestIdentity_ExcludesVolatileFields(t *testing.T) {
	a, err := New(domainSpec(), map[string]Value{"RANDOM_SEED": Int(1)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, err := New(domainSpec(), map[string]Value{"RANDOM_SEED": Int(7)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.Identity() != b.Identity() {
		t.Errorf("identities differ across seeds:\n  a=%s\n  b=%s", a.Identity(), b.Identity())
	}
	if !a.Equal(b) {
		t.Error("records differing only in seed should be equal")
	}
	if a.HashKey() != b.HashKey() {
		t.Error("hash keys should agree with equality")
	}
	if a.Repr() == b.Repr() {
		t.Error("full representations must still include the seed")
	}
}

func TestIdentity_CanonicalForm(t *testing.T) {
	r, err := New(domainSpec(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := "DomainParams(BOX_LEN:150; HII_DIM:64)"
	if got := r.Identity(); got != want {
		t.Errorf("Identity() = %q, want %q", got, want)
	}
}

func TestUpdate_MergeTotality(t *testing.T) {
	spec := &Spec{
		Name: "Pair",
		Fields: []FieldSpec{
			{Name: "a", Kind: KindScalar},
			{Name: "b", Kind: KindScalar},
		},
		Defaults: map[string]Value{"a": Int(1), "b": Int(2)},
	}
	r, err := New(spec, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rejected, err := r.Update(map[string]Value{"a": Int(5), "z": Int(9)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(rejected) != 1 || rejected[0] != "z" {
		t.Errorf("rejected = %v, want [z]", rejected)
	}
	if v, _ := r.Get("a"); v.Int64() != 5 {
		t.Errorf("a = %v, want 5", v)
	}
	if v, _ := r.Get("b"); v.Int64() != 2 {
		t.Errorf("b = %v, want 2", v)
	}
}

func TestUpdate_TypeErrorLeavesRecordUnchanged(t *testing.T) {
	r, err := New(domainSpec(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := r.Update(map[string]Value{"HII_DIM": Int(128), "BOX_LEN": Text("wat")}); err == nil {
		t.Fatal("Update() with wrong type should fail")
	}
	if v, _ := r.Get("HII_DIM"); v.Int64() != 64 {
		t.Errorf("HII_DIM = %v, want untouched 64", v)
	}
}

func TestUpdate_WarnsThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	spec := domainSpec()
	spec.Logger = observe.NewLoggerWithWriter("warn", &buf)

	r, err := New(spec, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := r.Update(map[string]Value{"nope": Int(1)}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !strings.Contains(buf.String(), "nope") {
		t.Errorf("warning log should name the rejected key, got: %s", buf.String())
	}
}

func TestUpdate_InvalidatesMaterializedView(t *testing.T) {
	r, err := New(domainSpec(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	v1, err := r.Materialize()
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	v2, err := r.Materialize()
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if v1 != v2 {
		t.Error("repeated Materialize() should return the cached view")
	}

	if _, err := r.Update(map[string]Value{"HII_DIM": Int(32)}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	v3, err := r.Materialize()
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if v3 == v1 {
		t.Error("Update() must invalidate and replace the foreign binding")
	}
	if got, _ := v3.Scalar("HII_DIM"); got != int64(32) {
		t.Errorf("rebound view HII_DIM = %v, want 32", got)
	}
}

func TestMaterialize_CopiesAllFieldKinds(t *testing.T) {
	r, err := New(modelSpec(), map[string]Value{"USE_RSD": Bool(true)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	st, err := r.Materialize()
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	if got, _ := st.Scalar("SIGMA_8"); got != 0.81 {
		t.Errorf("SIGMA_8 = %v, want 0.81", got)
	}
	if got, _ := st.Scalar("USE_RSD"); got != true {
		t.Errorf("USE_RSD = %v, want true", got)
	}
	if got, _ := st.Text("TRANSFER"); got != "eisenstein-hu" {
		t.Errorf("TRANSFER = %q, want eisenstein-hu", got)
	}
}

func TestAdjust_DerivedFieldAndFailure(t *testing.T) {
	spec := &Spec{
		Name: "Derived",
		Fields: []FieldSpec{
			{Name: "dim", Kind: KindScalar},
			{Name: "cells", Kind: KindScalar},
		},
		Defaults: map[string]Value{"dim": Int(4), "cells": Int(0)},
		Adjust: func(fields map[string]Value) error {
			dim := fields["dim"].Int64()
			if dim <= 0 {
				return fmt.Errorf("dim must be positive, got %d", dim)
			}
			fields["cells"] = Int(dim * dim * dim)
			return nil
		},
	}

	r, err := New(spec, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if v, _ := r.Get("cells"); v.Int64() != 64 {
		t.Errorf("cells = %v, want derived 64", v)
	}

	if _, err := New(spec, map[string]Value{"dim": Int(-1)}); !errors.Is(err, ErrConstruction) {
		t.Errorf("New() with failing adjust error = %v, want ErrConstruction", err)
	}
}

func TestSeed_AccessAndOverwrite(t *testing.T) {
	r, err := New(domainSpec(), map[string]Value{"RANDOM_SEED": Int(9)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	seed, ok := r.Seed()
	if !ok || seed != 9 {
		t.Fatalf("Seed() = %d, %v; want 9, true", seed, ok)
	}

	if !r.SetSeed(3) {
		t.Fatal("SetSeed() should find the volatile field")
	}
	seed, _ = r.Seed()
	if seed != 3 {
		t.Errorf("Seed() after SetSeed = %d, want 3", seed)
	}

	m, err := New(modelSpec(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := m.Seed(); ok {
		t.Error("model spec has no volatile field; Seed() should report false")
	}
}
