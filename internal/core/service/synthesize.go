package service

import (
	"encoding/json"

	"github.com/yndnr/meshboot/internal/core/domain"
)

// Synthesize builds the agent configuration for the given mode.
//
// Server configs bind and advertise on the task IP and carry the bootstrap
// quorum size. Client configs only bind; they join the quorum the servers
// formed. Both use the derived node name and the discovered peers as the
// retry_join list.
func Synthesize(mode domain.Mode, id domain.TaskIdentity, peers []string, quorum int, datacenter string) (domain.AgentConfig, error) {
	join := append([]string(nil), peers...)
	if join == nil {
		join = []string{}
	}

	switch mode {
	case domain.ModeServer:
		return &domain.ServerAgentConfig{
			BindAddr:        id.IP,
			AdvertiseAddr:   id.IP,
			BootstrapExpect: quorum,
			Datacenter:      datacenter,
			NodeName:        domain.NodeName(mode, id),
			RetryJoin:       join,
		}, nil
	case domain.ModeClient:
		return &domain.ClientAgentConfig{
			BindAddr:   id.IP,
			Datacenter: datacenter,
			NodeName:   domain.NodeName(mode, id),
			RetryJoin:  join,
		}, nil
	default:
		return nil, domain.ErrInvalidMode.WithDetails(string(mode))
	}
}

// MarshalAgentConfig encodes an agent config as indented JSON.
func MarshalAgentConfig(cfg domain.AgentConfig) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
