package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

func newTestLogger(t *testing.T) (logger.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l, &buf
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,handler" {
		t.Errorf("order = %s, want a,b,handler", got)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
		if r.Header.Get(HeaderRequestID) != seen {
			t.Errorf("request header = %q, context = %q", r.Header.Get(HeaderRequestID), seen)
		}
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if len(seen) != 26 {
			t.Errorf("generated id = %q, want a 26 char ULID", seen)
		}
		if rec.Header().Get(HeaderRequestID) != seen {
			t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if seen != "req-123" {
			t.Errorf("request id = %q, want req-123", seen)
		}
		if rec.Header().Get(HeaderRequestID) != "req-123" {
			t.Errorf("response header = %q, want req-123", rec.Header().Get(HeaderRequestID))
		}
	})
}

func TestParseAmznTraceID(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Root=1-5759e988-bd862e3fe1be46a994272793", "1-5759e988-bd862e3fe1be46a994272793"},
		{"Root=1-abc;Parent=53995c3f42cd8ad8;Sampled=1", "1-abc"},
		{"Self=1-def; Root=1-abc", "1-abc"},
		{"Parent=53995c3f42cd8ad8", ""},
	}
	for _, tt := range tests {
		if got := ParseAmznTraceID(tt.header); got != tt.want {
			t.Errorf("ParseAmznTraceID(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestTraceID(t *testing.T) {
	var seen string
	h := TraceID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = logger.TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAmznTraceID, "Root=1-abc;Sampled=1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "1-abc" {
		t.Errorf("trace id = %q, want 1-abc", seen)
	}
}

func TestLogging_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			log, buf := newTestLogger(t)
			h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("decode log line: %v\n%s", err, buf)
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["path"] != "/x" {
				t.Errorf("path = %v, want /x", entry["path"])
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
		})
	}
}

func TestLogging_ContextLogger(t *testing.T) {
	log, buf := newTestLogger(t)

	var inner logger.Logger
	h := Chain(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		inner = logger.FromContext(r.Context())
		logger.L(r.Context()).Info("handled")
	}), RequestID(), TraceID(), Logging(log))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderAmznTraceID, "Root=1-5759e988-bd862e3fe1be46a994272793")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if inner != log {
		t.Error("handler context does not carry the middleware logger")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf)
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line: %v\n%s", err, line)
		}
		if entry["request_id"] != "req-42" {
			t.Errorf("request_id = %v, want req-42 in %s", entry["request_id"], line)
		}
		if entry["trace_id"] != "1-5759e988-bd862e3fe1be46a994272793" {
			t.Errorf("trace_id = %v in %s", entry["trace_id"], line)
		}
	}
}

func TestRecover(t *testing.T) {
	log, buf := newTestLogger(t)
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID(), Recover(log))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "Error occurred" || body.RequestID != "req-1" {
		t.Errorf("body = %+v", body)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("panic not logged:\n%s", buf)
	}
}

func TestRecover_AbortHandler(t *testing.T) {
	log, _ := newTestLogger(t)
	h := Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ServeHTTP() returned, want re-panic")
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusTeapot, ErrorBody{Message: "short and stout"})

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"short and stout"}` {
		t.Errorf("body = %s", got)
	}
}
