// Package runner orchestrates compute-or-restore: look up an artifact in
// the cache, restore it when a container matches, and otherwise invoke the
// native routine and persist the result. It is the scheduling layer the
// cache engine itself deliberately does not provide.
package runner

import (
	"context"
	"errors"
	"time"

	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/boxcache/artifact"
	"github.com/jonwraymond/boxcache/container"
	"github.com/jonwraymond/boxcache/foreign"
	"github.com/jonwraymond/boxcache/observe"
)

// NativeFunc is the native routine boundary: it receives the artifact's
// bound foreign struct plus the materialized parameter structs, and fills
// the artifact's buffers on success. Implementations should honor ctx
// cancellation where the underlying routine allows it.
type NativeFunc func(ctx context.Context, out *foreign.Struct, params ...*foreign.Struct) error

// Config configures a Runner.
type Config struct {
	// Dir is an optional cache directory searched before (and persisted to
	// instead of) the locator's default directory.
	Dir string

	// MatchSeed requires cached containers to match the record's seed
	// exactly; when false, any seed variant of the fingerprint is accepted.
	MatchSeed bool

	// Timeout bounds the native call. Zero means no bound.
	Timeout time.Duration

	// Tracer, Metrics, and Logger default to no-ops when nil.
	Tracer  trace.Tracer
	Metrics observe.CacheMetrics
	Logger  observe.Logger
}

// Runner runs artifact computations with cache-first semantics.
//
// Contract:
// - Concurrency: Run is safe for concurrent use across distinct records.
//   Concurrent Runs for the same fingerprint are collapsed in-process via
//   singleflight; cross-process races remain the caller's concern.
// - A given artifact record must still only be passed to one Run at a time:
//   the record itself is single-owner mutable state.
type Runner struct {
	cfg   Config
	group singleflight.Group
}

// NewFromObserver creates a Runner wired to an observer's telemetry: the
// observer's tracer and logger, plus cache metric instruments built on its
// meter. Tracer/Metrics/Logger set on cfg are overwritten.
func NewFromObserver(obs observe.Observer, cfg Config) (*Runner, error) {
	metrics, err := observe.NewCacheMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	cfg.Tracer = obs.Tracer()
	cfg.Metrics = metrics
	cfg.Logger = obs.Logger()
	return New(cfg), nil
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Tracer == nil {
		cfg.Tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopCacheMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Runner{cfg: cfg}
}

// Run ensures rec is filled: restored from the cache when a matching
// container exists, computed and persisted otherwise. It reports whether
// the result came from the cache.
func (r *Runner) Run(ctx context.Context, rec *artifact.Record, compute NativeFunc) (hit bool, err error) {
	meta := r.meta(rec)

	v, err, _ := r.group.Do(rec.Fingerprint(), func() (any, error) {
		return r.run(ctx, rec, compute, meta)
	})
	if err != nil {
		return false, err
	}
	hit = v.(bool)

	// A duplicate caller's record was not touched by the winning flight;
	// its container is on disk now, so restore it.
	if !rec.Filled() {
		err = observe.Operation(ctx, r.cfg.Tracer, r.cfg.Metrics, r.cfg.Logger, meta, "restore", func(ctx context.Context) error {
			return rec.Restore(r.lookup())
		})
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return hit, nil
}

func (r *Runner) run(ctx context.Context, rec *artifact.Record, compute NativeFunc, meta observe.RecordMeta) (bool, error) {
	restoreErr := observe.Operation(ctx, r.cfg.Tracer, r.cfg.Metrics, r.cfg.Logger, meta, "restore", func(ctx context.Context) error {
		return rec.Restore(r.lookup())
	})
	switch {
	case restoreErr == nil:
		r.cfg.Metrics.RecordLookup(ctx, meta, true)
		return true, nil
	case errors.Is(restoreErr, artifact.ErrNotFound):
		// Plain miss; fall through to compute.
	case errors.Is(restoreErr, container.ErrCorrupt):
		// A corrupt container is a miss, not a failure; recompute over it.
		r.cfg.Logger.Warn(ctx, "corrupt cached container, recomputing",
			observe.Field{Key: "record.kind", Value: meta.Kind},
			observe.Field{Key: "record.fingerprint", Value: meta.Fingerprint},
			observe.Field{Key: "error", Value: restoreErr.Error()},
		)
	default:
		return false, restoreErr
	}
	r.cfg.Metrics.RecordLookup(ctx, meta, false)

	err := observe.Operation(ctx, r.cfg.Tracer, r.cfg.Metrics, r.cfg.Logger, meta, "compute", func(ctx context.Context) error {
		return r.compute(ctx, rec, compute)
	})
	if err != nil {
		return false, err
	}

	err = observe.Operation(ctx, r.cfg.Tracer, r.cfg.Metrics, r.cfg.Logger, meta, "persist", func(ctx context.Context) error {
		return rec.Persist(r.cfg.Dir, "")
	})
	if err != nil {
		return false, err
	}
	return false, nil
}

func (r *Runner) compute(ctx context.Context, rec *artifact.Record, compute NativeFunc) error {
	out, err := rec.ForeignStruct()
	if err != nil {
		return err
	}
	dom, err := rec.Domain().Materialize()
	if err != nil {
		return err
	}
	mod, err := rec.Model().Materialize()
	if err != nil {
		return err
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	if err := compute(ctx, out, dom, mod); err != nil {
		return err
	}

	rec.MarkFilled()
	return rec.ExposeScalars()
}

func (r *Runner) lookup() artifact.Lookup {
	return artifact.Lookup{Dir: r.cfg.Dir, MatchSeed: r.cfg.MatchSeed}
}

func (r *Runner) meta(rec *artifact.Record) observe.RecordMeta {
	seed, _ := rec.Domain().Seed()
	return observe.RecordMeta{
		Kind:        rec.Spec().Name,
		Fingerprint: rec.Fingerprint(),
		Seed:        seed,
	}
}
