package artifact

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonwraymond/boxcache/cache"
	"github.com/jonwraymond/boxcache/container"
	"github.com/jonwraymond/boxcache/foreign"
	"github.com/jonwraymond/boxcache/observe"
	"github.com/jonwraymond/boxcache/record"
)

// Options configures an artifact record at construction.
type Options struct {
	// Locator resolves cache filenames; a nil Locator disables the default
	// directory and makes every lookup query-scoped.
	Locator *cache.Locator

	// Adapter is the container format used by Persist/Restore.
	// Default: container.NewStore().
	Adapter container.Adapter

	// Fingerprinter derives the cache fingerprint.
	// Default: cache.NewMD5Fingerprinter().
	Fingerprinter cache.Fingerprinter

	// InitArrays eagerly allocates and binds arrays at construction.
	InitArrays bool

	// Scalars seeds initial values for declared scalar fields. Unknown
	// names are rejected with a warning.
	Scalars map[string]record.Value

	// Logger receives non-fatal warnings. Nil silences them.
	Logger observe.Logger
}

// Record is one cached computation result: two composing parameter records
// held by reference, exclusively owned array buffers, and primitive outputs.
//
// Contract:
// - Concurrency: a Record is single-owner mutable state; the native call and
//   all buffer mutation on one Record must be serialized. Distinct records
//   (distinct fingerprints) may be processed concurrently.
// - Ownership: the Record owns its arrays outright; the foreign struct is a
//   borrowed view over them and never a separate owner.
// - There is no in-place update: build a new Record for new parameters.
type Record struct {
	spec    *Spec
	domain  *record.Record
	model   *record.Record
	arrays  map[string]*foreign.Array
	scalars map[string]record.Value

	view   *foreign.Struct
	filled bool
	fp     string

	loc     *cache.Locator
	adapter container.Adapter
	fpr     cache.Fingerprinter
	logger  observe.Logger
}

// New builds an artifact record composing the two parameter records. Both
// are required: they are the record's identity.
func New(spec *Spec, domain, model *record.Record, opts Options) (*Record, error) {
	if domain == nil || model == nil {
		return nil, errors.New("artifact: domain and model parameter records are required")
	}

	r := &Record{
		spec:    spec,
		domain:  domain,
		model:   model,
		arrays:  make(map[string]*foreign.Array, len(spec.Arrays)),
		scalars: make(map[string]record.Value, len(spec.Scalars)),
		loc:     opts.Locator,
		adapter: opts.Adapter,
		fpr:     opts.Fingerprinter,
		logger:  opts.Logger,
	}
	if r.loc == nil {
		r.loc = &cache.Locator{}
	}
	if r.adapter == nil {
		r.adapter = container.NewStore()
	}
	if r.fpr == nil {
		r.fpr = cache.NewMD5Fingerprinter()
	}

	var rejected []string
	for name, v := range opts.Scalars {
		if _, ok := spec.ScalarField(name); !ok {
			rejected = append(rejected, name)
			continue
		}
		r.scalars[name] = v
	}
	if len(rejected) > 0 && r.logger != nil {
		r.logger.Warn(context.Background(), "rejected unknown scalar fields",
			observe.Field{Key: "record.kind", Value: spec.Name},
			observe.Field{Key: "fields", Value: strings.Join(rejected, ",")},
		)
	}

	if opts.InitArrays {
		if err := r.EnsureArrays(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Spec returns the artifact kind definition.
func (r *Record) Spec() *Spec { return r.spec }

// Domain returns the domain parameter record (held by reference).
func (r *Record) Domain() *record.Record { return r.domain }

// Model returns the model parameter record (held by reference).
func (r *Record) Model() *record.Record { return r.model }

// Filled reports whether the native routine or a restore has populated the
// record. Scalar reads must not be trusted before this is true.
func (r *Record) Filled() bool { return r.filled }

// MarkFilled flags the record as populated after a successful native call.
func (r *Record) MarkFilled() { r.filled = true }

// Array returns an owned array buffer, or nil before allocation.
func (r *Record) Array(name string) *foreign.Array { return r.arrays[name] }

// Scalar returns a primitive field value.
func (r *Record) Scalar(name string) (record.Value, bool) {
	v, ok := r.scalars[name]
	return v, ok
}

// SetScalar stores a primitive field value and, if the view is bound,
// mirrors it into the foreign struct.
func (r *Record) SetScalar(name string, v record.Value) error {
	if _, ok := r.spec.ScalarField(name); !ok {
		return fmt.Errorf("artifact: %s has no scalar field %q", r.spec.Name, name)
	}
	r.scalars[name] = v
	if r.view != nil {
		return r.view.SetScalar(name, v.Native())
	}
	return nil
}

// ArraysInitialized reports whether every array field is present and bound
// to non-nil foreign memory. This must hold before the record is handed to
// the native routine.
func (r *Record) ArraysInitialized() bool {
	return r.view != nil && len(r.view.Unbound()) == 0
}

// EnsureArrays allocates any unset array field using the kind's shape
// policy, then binds every array and scalar into the foreign struct.
// Returns ErrStructInvalid if any array field is still unbound afterwards.
func (r *Record) EnsureArrays() error {
	if r.view == nil {
		r.view = foreign.NewStruct(r.spec.Name, r.spec.slots())
	}

	for _, f := range r.spec.Arrays {
		if r.arrays[f.Name] != nil {
			continue
		}
		if f.Shape == nil {
			continue
		}
		shape := f.Shape(r.domain)
		if len(shape) == 0 {
			continue
		}
		r.arrays[f.Name] = foreign.NewArray(f.Dtype, shape...)
	}

	for _, f := range r.spec.Arrays {
		a := r.arrays[f.Name]
		if a == nil {
			continue
		}
		if err := r.view.Bind(f.Name, a); err != nil {
			return fmt.Errorf("artifact: bind %s.%s: %w", r.spec.Name, f.Name, err)
		}
	}
	for _, f := range r.spec.Scalars {
		v, ok := r.scalars[f.Name]
		if !ok {
			continue
		}
		if err := r.view.SetScalar(f.Name, v.Native()); err != nil {
			return fmt.Errorf("artifact: bind %s.%s: %w", r.spec.Name, f.Name, err)
		}
	}

	if missing := r.view.Unbound(); len(missing) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrStructInvalid, r.spec.Name, strings.Join(missing, ", "))
	}
	return nil
}

// ForeignStruct returns the bound foreign struct, lazily initializing
// arrays first. This is the only entry point that may be handed to the
// native routine.
func (r *Record) ForeignStruct() (*foreign.Struct, error) {
	if !r.ArraysInitialized() {
		if err := r.EnsureArrays(); err != nil {
			return nil, err
		}
	}
	return r.view, nil
}

// ExposeScalars copies primitive fields back out of the foreign struct into
// the record's scalar mapping. It refuses to read foreign memory before the
// record is filled.
func (r *Record) ExposeScalars() error {
	if !r.filled {
		return fmt.Errorf("%w: %s: expose scalars", ErrNotFilled, r.spec.Name)
	}
	if r.view == nil {
		return fmt.Errorf("%w: %s: no bound struct", ErrStructInvalid, r.spec.Name)
	}
	for _, f := range r.spec.Scalars {
		v, ok := r.view.Scalar(f.Name)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case float64:
			r.scalars[f.Name] = record.Float(x)
		case int64:
			r.scalars[f.Name] = record.Int(x)
		case bool:
			r.scalars[f.Name] = record.Bool(x)
		case string:
			r.scalars[f.Name] = record.Text(x)
		}
	}
	return nil
}

// Fingerprint returns the cache fingerprint: a hash of the concatenated
// identity representations of the two composing parameter records. Volatile
// seed fields are excluded, so every seed variant of the same parameters
// shares one fingerprint; the seed appears only in the filename's seed
// component. The value is derived once and reused as the record's hash key.
func (r *Record) Fingerprint() string {
	if r.fp == "" {
		r.fp = r.fpr.Fingerprint(r.domain.Identity(), r.model.Identity())
	}
	return r.fp
}

// FileName returns the cache filename for this record:
// <Kind>_<fingerprint>_r<seed>.<ext>, with the seed read from the domain
// record's volatile field.
func (r *Record) FileName() string {
	seed, _ := r.domain.Seed()
	return cache.FileName(r.spec.Name, r.Fingerprint(), seed, r.spec.ext())
}

// Lookup scopes a cache search.
type Lookup struct {
	// Dir is an optional directory searched before the locator's default.
	Dir string
	// Explicit is an optional exact filename checked under Dir first.
	Explicit string
	// MatchSeed requires the on-disk seed to equal this record's seed.
	MatchSeed bool
}

// LocateExisting searches the cache for a container matching this record's
// parameters. A miss is a result, not an error.
func (r *Record) LocateExisting(q Lookup) (string, bool) {
	return r.loc.Find(cache.Query{
		Name:      r.FileName(),
		Dir:       q.Dir,
		Explicit:  q.Explicit,
		MatchSeed: q.MatchSeed,
	})
}

// ExistsInCache reports whether LocateExisting would find a container.
func (r *Record) ExistsInCache(q Lookup) bool {
	_, ok := r.LocateExisting(q)
	return ok
}

// Persist writes the record to a container at the fingerprint-derived path
// (or dir/explicit when both are given): one attribute group per composing
// parameter record with its full field set, and a group named after the
// record kind holding one dataset per array plus one attribute per scalar.
func (r *Record) Persist(dir, explicit string) error {
	if !r.filled {
		return fmt.Errorf("%w: %s: persist", ErrNotFilled, r.spec.Name)
	}

	path, err := r.targetPath(dir, explicit)
	if err != nil {
		return err
	}

	h, err := r.adapter.OpenOrCreate(path)
	if err != nil {
		return fmt.Errorf("artifact: persist %s: %w", r.spec.Name, err)
	}

	werr := r.writeTo(h)
	cerr := h.Close()
	if werr != nil {
		return fmt.Errorf("artifact: persist %s: %w", r.spec.Name, werr)
	}
	if cerr != nil {
		return fmt.Errorf("artifact: persist %s: %w", r.spec.Name, cerr)
	}
	return nil
}

func (r *Record) writeTo(h container.Handle) error {
	if err := h.WriteAttrGroup(r.domain.Spec().Name, r.domain.Fields()); err != nil {
		return err
	}
	if err := h.WriteAttrGroup(r.model.Spec().Name, r.model.Fields()); err != nil {
		return err
	}
	for _, f := range r.spec.Arrays {
		a := r.arrays[f.Name]
		if a == nil {
			return fmt.Errorf("%w: %s: %s", ErrStructInvalid, r.spec.Name, f.Name)
		}
		if err := h.WriteDataset(r.spec.Name, f.Name, a); err != nil {
			return err
		}
	}
	if len(r.scalars) > 0 {
		if err := h.WriteAttrGroup(r.spec.Name, r.scalars); err != nil {
			return err
		}
	}
	return nil
}

// Restore finds a matching cached container and reads it into this record:
// datasets are copied into the owned array buffers in place (bindings stay
// valid), scalar attributes into the scalar mapping, and the domain record's
// seed is overwritten with the value actually stored on disk, which may
// differ from the requested seed under seed-insensitive matching. On
// success the record is filled.
func (r *Record) Restore(q Lookup) error {
	path, ok := r.LocateExisting(q)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, r.FileName())
	}

	if !r.ArraysInitialized() {
		if err := r.EnsureArrays(); err != nil {
			return err
		}
	}

	h, err := r.adapter.Open(path)
	if err != nil {
		return fmt.Errorf("artifact: restore %s: %w", r.spec.Name, err)
	}
	defer h.Close()

	if err := r.readFrom(h); err != nil {
		return fmt.Errorf("artifact: restore %s: %w", r.spec.Name, err)
	}
	r.filled = true
	return nil
}

func (r *Record) readFrom(h container.Handle) error {
	if len(r.spec.Arrays) > 0 {
		keys, err := h.GroupKeys(r.spec.Name)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return fmt.Errorf("%w: missing group %s", container.ErrCorrupt, r.spec.Name)
		}
	}
	for _, f := range r.spec.Arrays {
		if err := h.ReadDataset(r.spec.Name, f.Name, r.arrays[f.Name]); err != nil {
			return err
		}
	}

	attrs, err := h.ReadAttrGroup(r.spec.Name)
	if err != nil {
		return err
	}
	for _, f := range r.spec.Scalars {
		v, ok := attrs[f.Name]
		if !ok {
			continue
		}
		if err := r.SetScalar(f.Name, v); err != nil {
			return err
		}
	}

	domAttrs, err := h.ReadAttrGroup(r.domain.Spec().Name)
	if err != nil {
		return err
	}
	seed, ok := volatileAttr(domAttrs)
	if !ok {
		return fmt.Errorf("%w: group %s has no seed attribute", container.ErrCorrupt, r.domain.Spec().Name)
	}
	r.domain.SetSeed(seed)
	return nil
}

func (r *Record) targetPath(dir, explicit string) (string, error) {
	name := r.FileName()
	if dir != "" && explicit != "" {
		name = explicit
	}
	if dir == "" {
		dir = r.loc.DefaultDir
	}
	if dir == "" {
		return "", errors.New("artifact: no cache directory configured")
	}
	return filepath.Join(dir, name), nil
}

func volatileAttr(attrs map[string]record.Value) (int64, bool) {
	if v, ok := attrs[record.SeedKey]; ok {
		return v.Int64(), true
	}
	for name, v := range attrs {
		if record.IsVolatile(name) {
			return v.Int64(), true
		}
	}
	return 0, false
}
