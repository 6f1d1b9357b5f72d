package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics records cache engine metrics: lookups by outcome and the
// durations of persist, restore, and native compute operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: recording must be best-effort and must not panic.
type CacheMetrics interface {
	// RecordLookup records one cache lookup and whether it hit.
	RecordLookup(ctx context.Context, meta RecordMeta, hit bool)

	// RecordOperation records the duration and error status of one cache
	// operation ("persist", "restore", "compute").
	RecordOperation(ctx context.Context, meta RecordMeta, op string, duration time.Duration, err error)
}

// cacheMetrics is the concrete implementation of CacheMetrics.
type cacheMetrics struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewCacheMetrics creates metric instruments on the given meter.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	hits, err := meter.Int64Counter(
		"boxcache.lookup.hits",
		metric.WithDescription("Cache lookups that found a matching container"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"boxcache.lookup.misses",
		metric.WithDescription("Cache lookups with no matching container"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"boxcache.op.errors",
		metric.WithDescription("Cache operations that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"boxcache.op.duration_ms",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{
		hits:         hits,
		misses:       misses,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *cacheMetrics) RecordLookup(ctx context.Context, meta RecordMeta, hit bool) {
	opt := metric.WithAttributes(recordAttrs(meta)...)
	if hit {
		m.hits.Add(ctx, 1, opt)
	} else {
		m.misses.Add(ctx, 1, opt)
	}
}

func (m *cacheMetrics) RecordOperation(ctx context.Context, meta RecordMeta, op string, duration time.Duration, err error) {
	attrs := append(recordAttrs(meta), attribute.String("op", op))
	opt := metric.WithAttributes(attrs...)

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
}

func recordAttrs(meta RecordMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("record.kind", meta.Kind),
	}
	if meta.Fingerprint != "" {
		attrs = append(attrs, attribute.String("record.fingerprint", meta.Fingerprint))
	}
	return attrs
}

// nopCacheMetrics discards everything.
type nopCacheMetrics struct{}

func (nopCacheMetrics) RecordLookup(context.Context, RecordMeta, bool) {}
func (nopCacheMetrics) RecordOperation(context.Context, RecordMeta, string, time.Duration, error) {
}

// NopCacheMetrics returns metrics that discard everything.
func NopCacheMetrics() CacheMetrics { return nopCacheMetrics{} }

// Ensure cacheMetrics implements CacheMetrics
var _ CacheMetrics = (*cacheMetrics)(nil)
