package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshboot/internal/bootstrap/config"
	"github.com/yndnr/meshboot/internal/infra/buildinfo"
	"github.com/yndnr/meshboot/internal/infra/confloader"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
	"github.com/yndnr/meshboot/internal/telemetry/metric"
	"github.com/yndnr/meshboot/internal/telemetry/tracer"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "meshboot",
		Usage:   "Bootstrap Consul agents and service registrations for ECS tasks",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			DiscoverCommand(),
			ServiceCommand(),
			IdentityCommand(),
			ServeCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"MESHBOOT_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: debug, info, warn, error",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:    "metadata-uri",
			Usage:   "ECS task metadata endpoint",
			EnvVars: []string{"ECS_CONTAINER_METADATA_URI_V4", "ECS_CONTAINER_METADATA_URI"},
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "AWS region of the ECS cluster",
			EnvVars: []string{"AWS_REGION", "AWS_DEFAULT_REGION"},
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write run metrics to this node_exporter textfile",
		},
		&cli.BoolFlag{
			Name:  "tracing",
			Usage: "Enable OpenTelemetry tracing",
		},
		&cli.StringFlag{
			Name:    "tracing-endpoint",
			Usage:   "OTLP/gRPC collector address (stdout when empty)",
			EnvVars: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"},
		},
		&cli.BoolFlag{
			Name:  "tracing-insecure",
			Usage: "Disable TLS for the OTLP collector connection",
		},
		&cli.StringFlag{
			Name:  "tracing-ca-file",
			Usage: "CA bundle trusted for the OTLP collector",
		},
	}
}

// globalKeys maps global flags onto configuration keys.
var globalKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"metadata-uri":     "metadata.uri",
	"region":           "aws.region",
	"metrics-textfile": "metrics.textfile",
	"tracing":          "tracing.enabled",
	"tracing-endpoint": "tracing.endpoint",
	"tracing-insecure": "tracing.insecure",
	"tracing-ca-file":  "tracing.ca_file",
}

// loadConfig builds the configuration from defaults, the config file,
// MESHBOOT_ environment variables and finally the flags set on c.
// keys maps command flags onto configuration keys.
func loadConfig(c *cli.Context, keys map[string]string) (*config.Config, error) {
	overrides := make(map[string]any)
	for _, m := range []map[string]string{globalKeys, keys} {
		for flagName, key := range m {
			if c.IsSet(flagName) {
				overrides[key] = c.Value(flagName)
			}
		}
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	cfg := config.Default()
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// stack bundles the ambient services every command uses.
type stack struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metric.Registry
	tracing *tracer.Provider
}

// setup loads the configuration and starts logging, metrics and tracing.
// The caller must call close.
func setup(c *cli.Context, keys map[string]string) (*stack, error) {
	cfg, err := loadConfig(c, keys)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	tp, err := tracer.New(c.Context, tracer.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "meshboot-" + c.Command.Name,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		CAFile:      cfg.Tracing.CAFile,
		CertFile:    cfg.Tracing.CertFile,
		KeyFile:     cfg.Tracing.KeyFile,
		Writer:      c.App.ErrWriter,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	return &stack{
		cfg:     cfg,
		log:     log,
		metrics: metric.NewRegistry(),
		tracing: tp,
	}, nil
}

// close flushes metrics and traces. Failures are only logged.
func (s *stack) close(ctx context.Context) {
	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			s.log.Warn("failed to write metrics textfile", "path", path, "error", err)
		}
	}
	if err := s.tracing.Shutdown(ctx); err != nil {
		s.log.Warn("failed to flush traces", "error", err)
	}
}
