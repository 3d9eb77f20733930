package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/meshboot/internal/telemetry/logger"
	"github.com/yndnr/meshboot/internal/telemetry/metric"
	"github.com/yndnr/meshboot/internal/telemetry/tracer"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address.
	Addr string
	// Name is the service name used for spans.
	Name    string
	Logger  logger.Logger
	Metrics *metric.Registry
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// New wraps app in the standard middleware chain and mounts /metrics.
func New(cfg Config, app http.Handler) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	mux := http.NewServeMux()
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	mux.Handle("/", Chain(app,
		tracer.Middleware(cfg.Name),
		cfg.Metrics.InstrumentHandler,
		RequestID(),
		TraceID(),
		Logging(log),
		Recover(log),
	))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Slog(log).Handler(), slog.LevelWarn),
		},
		log: log,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve accepts connections on l. It returns nil after Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.log.Info("http server listening", "addr", l.Addr().String())
	if err := s.httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
