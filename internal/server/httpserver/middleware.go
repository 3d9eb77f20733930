package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

// Request headers understood by the middleware.
const (
	HeaderRequestID   = "X-Request-Id"
	HeaderAmznTraceID = "X-Amzn-Trace-Id"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is
// the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID propagates X-Request-Id, generating a ULID when the caller
// sent none. The id is set on the request (so relayed calls carry it),
// the response and the request context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = ulid.Make().String()
				r.Header.Set(HeaderRequestID, requestID)
			}
			w.Header().Set(HeaderRequestID, requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TraceID stores the X-Ray root trace id of the request in its context.
func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if traceID := ParseAmznTraceID(r.Header.Get(HeaderAmznTraceID)); traceID != "" {
				r = r.WithContext(logger.WithTraceID(r.Context(), traceID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseAmznTraceID returns the Root field of an X-Amzn-Trace-Id header
// ("Root=1-5759e988-bd862e3fe1be46a994272793;Parent=...;Sampled=1").
func ParseAmznTraceID(header string) string {
	for _, field := range strings.Split(header, ";") {
		if root, ok := strings.CutPrefix(strings.TrimSpace(field), "Root="); ok {
			return root
		}
	}
	return ""
}

// Logging stores log in the request context and logs one line per request
// with the request and trace ids.
func Logging(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			r = r.WithContext(logger.WithLogger(r.Context(), log))
			next.ServeHTTP(wrapped, r)

			reqLog := logger.L(r.Context())
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			}

			switch {
			case wrapped.statusCode >= 500:
				reqLog.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				reqLog.Warn("request completed with client error", attrs...)
			default:
				reqLog.Info("request completed", attrs...)
			}
		})
	}
}

// Recover turns a handler panic into a 500 JSON error. http.ErrAbortHandler
// is re-raised so the server drops the connection without a response.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				log.Error("panic recovered",
					"request_id", logger.RequestIDFromContext(ctx),
					"error", rec,
					"path", r.URL.Path,
				)
				WriteJSON(w, http.StatusInternalServerError, ErrorBody{
					Message:   "Error occurred",
					Code:      http.StatusInternalServerError,
					TraceID:   logger.TraceIDFromContext(ctx),
					RequestID: logger.RequestIDFromContext(ctx),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorBody is the JSON error document of the demo services.
type ErrorBody struct {
	Message   string `json:"message"`
	Code      int    `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
