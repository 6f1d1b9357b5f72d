package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation wraps one cache operation in a span, records its duration, and
// logs the outcome. It is the single instrumentation path the runner uses
// for restore, compute, and persist.
func Operation(
	ctx context.Context,
	tracer trace.Tracer,
	metrics CacheMetrics,
	logger Logger,
	meta RecordMeta,
	op string,
	fn func(ctx context.Context) error,
) error {
	ctx, span := tracer.Start(ctx, "boxcache."+op,
		trace.WithAttributes(
			attribute.String("record.kind", meta.Kind),
			attribute.String("record.fingerprint", meta.Fingerprint),
			attribute.Int64("record.seed", meta.Seed),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	metrics.RecordOperation(ctx, meta, op, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx, op+" failed",
			Field{Key: "op", Value: op},
			Field{Key: "duration_ms", Value: duration.Milliseconds()},
			Field{Key: "error", Value: err.Error()},
		)
		return err
	}

	span.SetStatus(codes.Ok, "")
	logger.Debug(ctx, op+" completed",
		Field{Key: "op", Value: op},
		Field{Key: "duration_ms", Value: duration.Milliseconds()},
	)
	return nil
}
