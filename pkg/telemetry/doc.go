// Package telemetry groups the observability packages used by cprules.
//
//   - logging: slog logger construction, request context fields and redaction
//   - metrics: Prometheus collector for rule, audit, HTTP and scenario metrics
//   - health: liveness and readiness endpoints with component checks
//   - tracing: OpenTelemetry spans exported over OTLP
package telemetry
