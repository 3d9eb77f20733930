// Package httpserver hosts the demo HTTP services.
//
// Every request passes through the same middleware chain: OpenTelemetry
// server spans, Prometheus request metrics, request and trace id
// propagation, access logging and panic recovery. /metrics is served from
// the service's own registry.
package httpserver
