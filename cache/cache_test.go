package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	fpr := NewMD5Fingerprinter()

	a := fpr.Fingerprint("DomainParams(HII_DIM:64)", "ModelParams(SIGMA_8:0.81)")
	b := fpr.Fingerprint("DomainParams(HII_DIM:64)", "ModelParams(SIGMA_8:0.81)")

	if a != b {
		t.Errorf("same reprs should fingerprint identically: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32 hex chars", len(a))
	}
}

func TestFingerprint_SensitiveToAnyField(t *testing.T) {
	fpr := NewMD5Fingerprinter()

	base := fpr.Fingerprint("DomainParams(HII_DIM:64)", "ModelParams(SIGMA_8:0.81)")
	changed := fpr.Fingerprint("DomainParams(HII_DIM:65)", "ModelParams(SIGMA_8:0.81)")

	if base == changed {
		t.Error("changing a field must change the fingerprint")
	}
}

func TestFileName_Contract(t *testing.T) {
	got := FileName("InitialConditions", "0123456789abcdef0123456789abcdef", 12, "box")
	want := "InitialConditions_0123456789abcdef0123456789abcdef_r12.box"
	if got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestParseFileName_RoundTrip(t *testing.T) {
	name := FileName("InitialConditions", "0123456789abcdef0123456789abcdef", 7, "box")

	ent, ok := ParseFileName(name)
	if !ok {
		t.Fatalf("ParseFileName(%q) failed", name)
	}
	if ent.Kind != "InitialConditions" || ent.Seed != 7 || ent.Ext != "box" {
		t.Errorf("ParseFileName() = %+v", ent)
	}

	if _, ok := ParseFileName("not-a-cache-file.txt"); ok {
		t.Error("ParseFileName() should reject names outside the contract")
	}
}

func TestParseFileName_NegativeSeed(t *testing.T) {
	name := FileName("X", fp32("n"), -5, "box")

	ent, ok := ParseFileName(name)
	if !ok {
		t.Fatalf("ParseFileName(%q) failed", name)
	}
	if ent.Seed != -5 {
		t.Errorf("Seed = %d, want -5", ent.Seed)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocator_ExactMatch(t *testing.T) {
	dir := t.TempDir()
	name := FileName("X", fp32("a"), 1, "box")
	touch(t, filepath.Join(dir, name))

	loc := &Locator{DefaultDir: dir}

	got, ok := loc.Find(Query{Name: name, MatchSeed: true})
	if !ok || got != filepath.Join(dir, name) {
		t.Errorf("Find() = %q, %v", got, ok)
	}
}

func TestLocator_SeedInsensitiveSearch(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, FileName("X", fp32("a"), 1, "box")))
	touch(t, filepath.Join(dir, FileName("X", fp32("a"), 2, "box")))

	loc := &Locator{DefaultDir: dir}
	requested := FileName("X", fp32("a"), 3, "box")

	// matchSeed=false falls back to any seed variant.
	got, ok := loc.Find(Query{Name: requested})
	if !ok {
		t.Fatal("Find() should match a seed variant")
	}
	if got != filepath.Join(dir, FileName("X", fp32("a"), 1, "box")) {
		t.Errorf("tie-break should pick the smallest path, got %q", got)
	}

	// matchSeed=true must not.
	if _, ok := loc.Find(Query{Name: requested, MatchSeed: true}); ok {
		t.Error("Find() with MatchSeed should miss for seed 3")
	}
}

func TestLocator_NegativeSeedVariantFound(t *testing.T) {
	dir := t.TempDir()
	stored := FileName("X", fp32("n"), -5, "box")
	touch(t, filepath.Join(dir, stored))

	loc := &Locator{DefaultDir: dir}

	got, ok := loc.Find(Query{Name: FileName("X", fp32("n"), 3, "box")})
	if !ok || got != filepath.Join(dir, stored) {
		t.Errorf("Find() = %q, %v; want the negative-seed variant", got, ok)
	}
}

func TestLocator_QueryDirSearchedBeforeDefault(t *testing.T) {
	defDir := t.TempDir()
	qryDir := t.TempDir()
	name := FileName("X", fp32("b"), 5, "box")
	touch(t, filepath.Join(defDir, name))
	touch(t, filepath.Join(qryDir, name))

	loc := &Locator{DefaultDir: defDir}

	got, ok := loc.Find(Query{Name: name, Dir: qryDir})
	if !ok || got != filepath.Join(qryDir, name) {
		t.Errorf("Find() = %q, want the query-dir copy", got)
	}

	// Falls back to the default dir when the query dir has nothing.
	got, ok = loc.Find(Query{Name: name, Dir: t.TempDir()})
	if !ok || got != filepath.Join(defDir, name) {
		t.Errorf("Find() = %q, want the default-dir copy", got)
	}
}

func TestLocator_ExplicitNameWins(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "pinned.box"))

	loc := &Locator{}

	got, ok := loc.Find(Query{Name: "X_whatever_r1.box", Dir: dir, Explicit: "pinned.box"})
	if !ok || got != filepath.Join(dir, "pinned.box") {
		t.Errorf("Find() = %q, %v; want explicit path", got, ok)
	}
}

func TestLocator_MissIsNotAnError(t *testing.T) {
	loc := &Locator{DefaultDir: t.TempDir()}

	if got, ok := loc.Find(Query{Name: FileName("X", fp32("c"), 1, "box")}); ok {
		t.Errorf("Find() on empty dir = %q, want miss", got)
	}
	if loc.Exists(Query{Name: FileName("X", fp32("c"), 1, "box")}) {
		t.Error("Exists() should report false on miss")
	}
}

// fp32 builds a deterministic 32-hex fingerprint for filenames in tests.
func fp32(seed string) string {
	return NewMD5Fingerprinter().Fingerprint(seed)
}
