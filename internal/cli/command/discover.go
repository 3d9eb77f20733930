package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshboot/internal/bootstrap/config"
	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/core/service"
	"github.com/yndnr/meshboot/internal/ecs/metadata"
	"github.com/yndnr/meshboot/internal/ecs/registry"
	"github.com/yndnr/meshboot/internal/infra/shutdown"
	"github.com/yndnr/meshboot/internal/storage/artifact"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

// newTaskRegistry creates the ECS task registry. Tests replace it.
var newTaskRegistry = func(ctx context.Context, region string, log logger.Logger) (service.TaskRegistry, error) {
	return registry.NewFromConfig(ctx, region, log)
}

// discoverKeys maps discover flags onto configuration keys.
var discoverKeys = map[string]string{
	"mode":          "discovery.mode",
	"ecs-cluster":   "discovery.cluster",
	"ecs-family":    "discovery.family",
	"quorum":        "discovery.quorum",
	"datacenter":    "discovery.datacenter",
	"poll-interval": "discovery.poll_interval",
	"max-wait":      "discovery.max_wait",
	"unbounded":     "discovery.unbounded",
	"saveto":        "discovery.output",
}

// DiscoverCommand returns the discover command.
func DiscoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Wait for the Consul servers and write the agent discovery config",
		Description: "Resolves the task identity, polls ECS until the expected number of\n" +
			"server tasks is running and writes a Consul agent config joining them.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Agent mode: server or client",
			},
			&cli.StringFlag{
				Name:    "ecs-cluster",
				Aliases: []string{"cluster"},
				Usage:   "ECS cluster the Consul servers run in (defaults to the task's cluster)",
			},
			&cli.StringFlag{
				Name:    "ecs-family",
				Aliases: []string{"family"},
				Usage:   "Task definition family of the Consul servers",
			},
			&cli.IntFlag{
				Name:    "quorum",
				Aliases: []string{"bootstrap-expect"},
				Usage:   "Number of servers to wait for",
				EnvVars: []string{"BOOTSTRAP_EXPECT"},
			},
			&cli.StringFlag{
				Name:  "datacenter",
				Usage: "Consul datacenter (defaults to the AWS region)",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "Delay between two ECS polls",
			},
			&cli.DurationFlag{
				Name:  "max-wait",
				Usage: "Give up when the servers are not running after this long",
			},
			&cli.BoolFlag{
				Name:  "unbounded",
				Usage: "Wait forever when --max-wait is 0",
			},
			&cli.StringFlag{
				Name:  "saveto",
				Usage: "Path of the generated agent config (- for stdout)",
			},
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print the config instead of writing it",
			},
		},
		Action: discover,
	}
}

func discover(c *cli.Context) error {
	s, err := setup(c, discoverKeys)
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	cfg := s.cfg
	if err := config.VerifyMetadata(&cfg.Metadata); err != nil {
		return err
	}
	if err := config.VerifyDiscovery(&cfg.Discovery); err != nil {
		return err
	}
	mode, err := domain.ParseMode(cfg.Discovery.Mode)
	if err != nil {
		return err
	}

	ctx, stop := shutdown.WithSignals(c.Context)
	defer stop()

	tasks, err := newTaskRegistry(ctx, cfg.AWS.Region, s.log)
	if err != nil {
		return err
	}

	datacenter := cfg.Discovery.Datacenter
	if datacenter == "" {
		datacenter = cfg.AWS.Region
	}

	bcfg := service.BootstrapConfig{
		Mode:            mode,
		Cluster:         cfg.Discovery.Cluster,
		Family:          cfg.Discovery.Family,
		Quorum:          cfg.Discovery.Quorum,
		Datacenter:      datacenter,
		PollInterval:    cfg.Discovery.PollInterval,
		MaxWait:         cfg.Discovery.MaxWait,
		Unbounded:       cfg.Discovery.Unbounded,
		AgentConfigPath: cfg.Discovery.Output,
	}
	b := service.NewBootstrapper(bcfg, newIdentityResolver(s), tasks, newArtifactWriter(c, s), s.metrics, s.log)

	_, err = b.GenerateAgentConfig(ctx)
	return err
}

// newIdentityResolver creates the metadata client for the configured
// endpoint.
func newIdentityResolver(s *stack) *metadata.Client {
	return metadata.NewClient(s.cfg.Metadata.URI,
		metadata.WithTimeout(s.cfg.Metadata.Timeout),
		metadata.WithLogger(s.log),
	)
}

// newArtifactWriter creates the artifact writer, honoring --print.
func newArtifactWriter(c *cli.Context, s *stack) *artifact.Writer {
	return artifact.New(artifact.Config{
		Print:      c.Bool("print"),
		Stdout:     c.App.Writer,
		CreateDirs: true,
	}, s.log)
}
