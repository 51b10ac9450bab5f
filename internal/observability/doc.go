// Package observability groups the relay's logging, metrics, and tracing
// support.
//
// Subpackages:
//   - logging: slog loggers carrying request_id and trace_id
//   - metrics: shared Prometheus metrics
//   - tracing: OpenTelemetry provider setup and HTTP spans
package observability
