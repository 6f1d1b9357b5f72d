// Package observe provides the telemetry surface of the box cache:
// structured logging, OpenTelemetry tracing and metrics, and cache-specific
// instruments (hit/miss counters, operation durations). Everything is
// constructed explicitly from configuration; there is no ambient global
// telemetry state beyond the otel provider registration.
package observe
