package command

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshboot/internal/bootstrap/config"
	"github.com/yndnr/meshboot/internal/infra/shutdown"
	"github.com/yndnr/meshboot/internal/server/httpserver"
	"github.com/yndnr/meshboot/internal/server/httpserver/handler"
	"github.com/yndnr/meshboot/internal/telemetry/tracer"
)

// serveKeys maps serve flags onto configuration keys.
var serveKeys = map[string]string{
	"addr":             "demo.addr",
	"counter-endpoint": "demo.counter_endpoint",
	"shutdown-timeout": "demo.shutdown_timeout",
}

// ServeCommand returns the serve subcommand group.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a demo service",
		Subcommands: []*cli.Command{
			{
				Name:  "counter",
				Usage: "Run the counter service",
				Flags: serveFlags(&cli.DurationFlag{
					Name:  "fail-delay",
					Usage: "How long /fail?code=504 stalls",
					Value: handler.DefaultFailDelay,
				}),
				Action: serveCounter,
			},
			{
				Name:  "dashboard",
				Usage: "Run the dashboard service",
				Flags: serveFlags(&cli.StringFlag{
					Name:    "counter-endpoint",
					Usage:   "Base URL of the counter service",
					EnvVars: []string{"COUNTER_ENDPOINT"},
				}),
				Action: serveDashboard,
			},
		},
	}
}

// serveFlags returns the flags shared by the demo services plus extra.
func serveFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "Listen address",
			EnvVars: []string{"LISTEN_ADDR"},
		},
		&cli.DurationFlag{
			Name:  "shutdown-timeout",
			Usage: "Grace period for in-flight requests on shutdown",
		},
	}, extra...)
}

func serveCounter(c *cli.Context) error {
	s, err := setup(c, serveKeys)
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	if err := config.VerifyDemo(&s.cfg.Demo, false); err != nil {
		return err
	}

	counter := handler.NewCounter(s.metrics, s.log)
	counter.SetFailDelay(c.Duration("fail-delay"))
	return runServer(c, s, "counter", counter)
}

func serveDashboard(c *cli.Context) error {
	s, err := setup(c, serveKeys)
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	if err := config.VerifyDemo(&s.cfg.Demo, true); err != nil {
		return err
	}

	endpoint := s.cfg.Demo.CounterEndpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	client := &http.Client{Transport: tracer.Transport(nil)}
	return runServer(c, s, "dashboard", handler.NewDashboard(endpoint, client, s.log))
}

// runServer serves h until a termination signal arrives or the listener
// fails.
func runServer(c *cli.Context, s *stack, name string, h http.Handler) error {
	s.metrics.WithRuntimeCollectors()

	srv := httpserver.New(httpserver.Config{
		Addr:    s.cfg.Demo.Addr,
		Name:    name,
		Logger:  s.log,
		Metrics: s.metrics,
	}, h)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	shutdownHandler := shutdown.NewHandler(s.cfg.Demo.ShutdownTimeout)
	shutdownHandler.OnShutdown(srv.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
			cancel()
		}
	}()

	s.log.Info("service started", "service", name, "addr", s.cfg.Demo.Addr)
	if err := shutdownHandler.Wait(ctx); err != nil {
		return err
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("%s server: %w", name, err)
	default:
		s.log.Info("service stopped gracefully", "service", name)
		return nil
	}
}
