package handler

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/yndnr/meshboot/internal/server/httpserver"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
	"github.com/yndnr/meshboot/internal/telemetry/metric"
)

// DefaultFailDelay is how long /fail?code=504 stalls before answering.
const DefaultFailDelay = 100 * time.Second

// CounterHealthy is the counter's health status.
const CounterHealthy = "COUNTER_HEALTHY"

// CountResponse is the body of GET / on the counter.
type CountResponse struct {
	Count            int64  `json:"count"`
	CounterServiceID string `json:"counter_service_id"`
	TraceID          string `json:"trace_id,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// Counter counts requests in memory.
type Counter struct {
	base
	count     atomic.Int64
	failDelay time.Duration
	metrics   *metric.Registry
}

// NewCounter creates the counter service. metrics may be nil.
func NewCounter(metrics *metric.Registry, log logger.Logger, opts ...Option) *Counter {
	c := &Counter{
		base:      newBase(log, opts),
		failDelay: DefaultFailDelay,
		metrics:   metrics,
	}
	c.mux.HandleFunc("GET /{$}", c.handleCount)
	c.mux.HandleFunc("GET /fail", c.handleFail)
	c.mux.HandleFunc("GET /health", healthHandler(CounterHealthy))
	return c
}

// SetFailDelay changes the /fail?code=504 stall.
func (c *Counter) SetFailDelay(d time.Duration) {
	c.failDelay = d
}

// Count returns the current count.
func (c *Counter) Count() int64 {
	return c.count.Load()
}

func (c *Counter) handleCount(w http.ResponseWriter, r *http.Request) {
	n := c.count.Add(1)
	c.metrics.SetCounter(n)

	traceID, requestID := ids(r)
	logger.L(r.Context()).Info("received request", "count", n)

	httpserver.WriteJSON(w, http.StatusOK, CountResponse{
		Count:            n,
		CounterServiceID: c.serviceID,
		TraceID:          traceID,
		RequestID:        requestID,
	})
}

// handleFail simulates upstream failures: 504 stalls, 502 drops the
// connection, any other code is answered directly.
func (c *Counter) handleFail(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		badCode(w, r)
		return
	}
	traceID, requestID := ids(r)

	switch code {
	case http.StatusGatewayTimeout:
		timer := time.NewTimer(c.failDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
		httpserver.WriteJSON(w, code, httpserver.ErrorBody{
			Message:   fmt.Sprintf("stalled for %s", c.failDelay),
			Code:      code,
			TraceID:   traceID,
			RequestID: requestID,
		})

	case http.StatusBadGateway:
		logger.L(r.Context()).Warn("aborting connection")
		panic(http.ErrAbortHandler)

	default:
		msg := fmt.Sprintf("/fail?code=%d called! Responding with %d, trace_id=%s, req_id=%s",
			code, code, traceID, requestID)
		logger.L(r.Context()).Info(msg)
		httpserver.WriteJSON(w, code, httpserver.ErrorBody{
			Message:   msg,
			TraceID:   traceID,
			RequestID: requestID,
		})
	}
}
