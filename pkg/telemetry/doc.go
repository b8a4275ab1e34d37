// Package telemetry groups the observability packages used by verdict.
//
//   - logging: slog construction with secret redaction
//   - metrics: Prometheus collectors for pipeline stages, cache, reasoner and policy
//   - tracing: OpenTelemetry tracer provider with OTLP export
//   - health: liveness and readiness probes for the schedule daemon
//
// Every package accepts a nil or disabled configuration and degrades to a
// no-op, so batch runs pay nothing for signals they do not export.
package telemetry
