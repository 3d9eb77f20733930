// Package tracer provides OpenTelemetry tracing for meshboot.
//
//   - otel.go: provider setup (stdout or OTLP/gRPC exporter) and spans
//   - http.go: server middleware and client transport
//
// Until New is called with tracing enabled the global provider is the
// OpenTelemetry no-op, so StartSpan is always safe to call.
package tracer
