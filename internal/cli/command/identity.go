package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshboot/internal/bootstrap/config"
	"github.com/yndnr/meshboot/internal/cli/output"
	"github.com/yndnr/meshboot/internal/core/domain"
)

// IdentityCommand returns the identity command.
func IdentityCommand() *cli.Command {
	return &cli.Command{
		Name:   "identity",
		Usage:  "Show the identity of the current task",
		Action: identity,
	}
}

// identityView is the printed form of a task identity.
type identityView struct {
	TaskID     string `json:"task_id" yaml:"task_id"`
	Family     string `json:"family" yaml:"family"`
	IP         string `json:"ip" yaml:"ip"`
	Zone       string `json:"zone,omitempty" yaml:"zone,omitempty"`
	Cluster    string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	InstanceID string `json:"instance_id" yaml:"instance_id"`
}

func identity(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	s, err := setup(c, nil)
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	if err := config.VerifyMetadata(&s.cfg.Metadata); err != nil {
		return err
	}

	id, err := newIdentityResolver(s).ResolveIdentity(c.Context)
	if err != nil {
		return err
	}

	return output.NewFormatter(format).Format(c.App.Writer, identityView{
		TaskID:     id.TaskID,
		Family:     id.Family,
		IP:         id.IP,
		Zone:       id.Zone,
		Cluster:    id.Cluster,
		InstanceID: domain.InstanceID(id),
	})
}
