package command

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshboot/internal/bootstrap/config"
	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/core/service"
	"github.com/yndnr/meshboot/internal/infra/confloader"
	"github.com/yndnr/meshboot/internal/infra/shutdown"
)

// serviceKeys maps service flags onto configuration keys.
var serviceKeys = map[string]string{
	"template":      "service.template",
	"template-file": "service.template_file",
	"saveto":        "service.output",
	"default-zone":  "service.default_zone",
	"watch":         "service.watch",
}

// ServiceCommand returns the service command.
func ServiceCommand() *cli.Command {
	return &cli.Command{
		Name:  "service",
		Usage: "Write the Consul service definition for this task",
		Description: "Fills the id and address of the service template with the task's\n" +
			"identity, tags it with the availability zone and writes the result.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Service definition template (JSON)",
				EnvVars: []string{"SERVICE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "template-file",
				Aliases: []string{"f"},
				Usage:   "Read the service definition template from a file",
			},
			&cli.StringFlag{
				Name:  "saveto",
				Usage: "Path of the generated service definition (- for stdout)",
			},
			&cli.StringFlag{
				Name:  "default-zone",
				Usage: "Zone used when the task metadata reports none",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Regenerate whenever the template file changes",
			},
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print the definition instead of writing it",
			},
		},
		Action: serviceAction,
	}
}

func serviceAction(c *cli.Context) error {
	s, err := setup(c, serviceKeys)
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	cfg := s.cfg
	if err := config.VerifyMetadata(&cfg.Metadata); err != nil {
		return err
	}
	if err := config.VerifyService(&cfg.Service); err != nil {
		return err
	}

	ctx, stop := shutdown.WithSignals(c.Context)
	defer stop()

	b := service.NewBootstrapper(service.BootstrapConfig{
		ServiceDescriptorPath: cfg.Service.Output,
		DefaultZone:           cfg.Service.DefaultZone,
	}, newIdentityResolver(s), nil, newArtifactWriter(c, s), s.metrics, s.log)

	template, err := loadTemplate(&cfg.Service)
	if err != nil {
		return err
	}
	if _, err := b.GenerateServiceDescriptor(ctx, template); err != nil {
		return err
	}

	if !cfg.Service.Watch {
		return nil
	}
	return watchTemplate(ctx, s, b, cfg.Service.TemplateFile)
}

// loadTemplate returns the inline template, or the template file contents
// when no inline template is set or the file is watched.
func loadTemplate(cfg *config.ServiceSection) ([]byte, error) {
	if cfg.Template != "" && !cfg.Watch {
		return []byte(cfg.Template), nil
	}
	data, err := os.ReadFile(cfg.TemplateFile)
	if err != nil {
		return nil, domain.ErrIOFailure.WithDetails("read service template").WithCause(err)
	}
	return data, nil
}

// watchTemplate regenerates the descriptor on every change of path until
// ctx is done. Failed regenerations are logged and the previous
// descriptor is kept.
func watchTemplate(ctx context.Context, s *stack, b *service.Bootstrapper, path string) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(s.log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		return err
	}

	w.OnChange(func(changed string) {
		template, err := os.ReadFile(changed)
		if err != nil {
			s.log.Error("failed to read service template", "path", changed, "error", err)
			return
		}
		if _, err := b.GenerateServiceDescriptor(ctx, template); err != nil {
			s.log.Error("failed to regenerate service descriptor", "path", changed, "error", err)
		}
	})

	w.StartAsync()
	s.log.Info("watching service template", "path", path)

	<-ctx.Done()
	return w.Stop()
}
