package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yndnr/meshboot/internal/server/httpserver"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
	"github.com/yndnr/meshboot/internal/telemetry/tracer"
)

// DashboardHealthy is the dashboard's health status.
const DashboardHealthy = "DASHBOARD_HEALTHY"

// maxRelayBody caps how much of a counter response is read.
const maxRelayBody = 64 << 10

// DashboardResponse is the body of GET / on the dashboard.
type DashboardResponse struct {
	Message            string `json:"message"`
	Count              int64  `json:"count"`
	CounterServiceID   string `json:"counter_service_id"`
	DashboardServiceID string `json:"dashboard_service_id"`
	TraceID            string `json:"trace_id,omitempty"`
	RequestID          string `json:"request_id,omitempty"`
}

// Dashboard fronts the counter service.
type Dashboard struct {
	base
	counterURL string
	client     *http.Client
}

// NewDashboard creates the dashboard service relaying to counterURL.
// A nil client gets a traced client without timeout; requests are bounded
// by the incoming request's context.
func NewDashboard(counterURL string, client *http.Client, log logger.Logger, opts ...Option) *Dashboard {
	if client == nil {
		client = &http.Client{Transport: tracer.Transport(nil)}
	}
	d := &Dashboard{
		base:       newBase(log, opts),
		counterURL: strings.TrimRight(counterURL, "/"),
		client:     client,
	}
	d.mux.HandleFunc("GET /{$}", d.handleIndex)
	d.mux.HandleFunc("GET /fail", d.handleFail)
	d.mux.HandleFunc("GET /health", healthHandler(DashboardHealthy))
	return d
}

// callCounter issues a GET to the counter, forwarding the request and
// trace headers.
func (d *Dashboard) callCounter(r *http.Request, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, d.counterURL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	for _, h := range []string{httpserver.HeaderRequestID, httpserver.HeaderAmznTraceID} {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	traceID, requestID := ids(r)
	log := logger.L(r.Context())
	log.Info("received request")

	resp, body, err := d.callCounter(r, "/")
	if err != nil {
		log.Warn("error connecting to counter", "endpoint", d.counterURL, "error", err)
		httpserver.WriteJSON(w, http.StatusInternalServerError, httpserver.ErrorBody{
			Message:   err.Error(),
			TraceID:   traceID,
			RequestID: requestID,
		})
		return
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("counter returned an error", "endpoint", d.counterURL, "code", resp.StatusCode)
		httpserver.WriteJSON(w, http.StatusInternalServerError, httpserver.ErrorBody{
			Message:   fmt.Sprintf("Error calling %s service", d.counterURL),
			Code:      resp.StatusCode,
			Error:     string(body),
			TraceID:   traceID,
			RequestID: requestID,
		})
		return
	}

	var counted CountResponse
	if err := json.Unmarshal(body, &counted); err != nil {
		httpserver.WriteJSON(w, http.StatusInternalServerError, httpserver.ErrorBody{
			Message:   fmt.Sprintf("decode counter response: %v", err),
			TraceID:   traceID,
			RequestID: requestID,
		})
		return
	}

	httpserver.WriteJSON(w, http.StatusOK, DashboardResponse{
		Message:            "Counter is reachable",
		Count:              counted.Count,
		CounterServiceID:   counted.CounterServiceID,
		DashboardServiceID: d.serviceID,
		TraceID:            traceID,
		RequestID:          requestID,
	})
}

// handleFail relays /fail to the counter and mirrors its status. A
// dropped connection is reported as 502.
func (d *Dashboard) handleFail(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		badCode(w, r)
		return
	}
	traceID, requestID := ids(r)
	logger.L(r.Context()).Info("relaying /fail to counter", "code", code)

	path := "/fail?" + url.Values{"code": {strconv.Itoa(code)}}.Encode()
	resp, _, err := d.callCounter(r, path)
	if err != nil {
		httpserver.WriteJSON(w, http.StatusBadGateway, httpserver.ErrorBody{
			Message:   fmt.Sprintf("counter %s%s failed: %v", d.counterURL, path, err),
			Code:      http.StatusBadGateway,
			TraceID:   traceID,
			RequestID: requestID,
		})
		return
	}

	httpserver.WriteJSON(w, resp.StatusCode, httpserver.ErrorBody{
		Message:   fmt.Sprintf("Received code=%d on %s%s", resp.StatusCode, d.counterURL, path),
		TraceID:   traceID,
		RequestID: requestID,
	})
}
