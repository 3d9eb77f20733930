package handler

import (
	"net/http"
	"os"
	"strconv"

	"github.com/yndnr/meshboot/internal/server/httpserver"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

// Option configures a handler.
type Option func(*base)

// WithServiceID overrides the service id reported in responses
// (the hostname by default).
func WithServiceID(id string) Option {
	return func(b *base) {
		b.serviceID = id
	}
}

// base holds what both services share.
type base struct {
	serviceID string
	log       logger.Logger
	mux       *http.ServeMux
}

func newBase(log logger.Logger, opts []Option) base {
	if log == nil {
		log = logger.Default()
	}
	b := base{log: log, mux: http.NewServeMux()}
	b.serviceID, _ = os.Hostname()
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// ServeHTTP routes r with the handler logger in its context, so handlers
// log through logger.L.
func (b *base) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), b.log)))
}

// healthHandler answers the health probe with a fixed status.
func healthHandler(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpserver.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

// parseCode reads the code query parameter of /fail.
func parseCode(r *http.Request) (int, bool) {
	code, err := strconv.Atoi(r.URL.Query().Get("code"))
	if err != nil || code < 100 || code > 599 {
		return 0, false
	}
	return code, true
}

// ids returns the trace and request ids stored by the middleware.
func ids(r *http.Request) (traceID, requestID string) {
	ctx := r.Context()
	return logger.TraceIDFromContext(ctx), logger.RequestIDFromContext(ctx)
}

func badCode(w http.ResponseWriter, r *http.Request) {
	traceID, requestID := ids(r)
	httpserver.WriteJSON(w, http.StatusBadRequest, httpserver.ErrorBody{
		Message:   "code must be an HTTP status between 100 and 599",
		Code:      http.StatusBadRequest,
		TraceID:   traceID,
		RequestID: requestID,
	})
}
