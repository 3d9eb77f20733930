// Package logger provides structured logging for meshboot.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, handler setup, global level
//   - context.go: context propagation of loggers and request/trace ids
//   - redact.go: masking of credentials before they reach the output
//
// Output is JSON by default; "text" selects the slog text handler.
package logger
