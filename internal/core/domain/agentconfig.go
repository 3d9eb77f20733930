package domain

// AgentConfig is the configuration document handed to the local agent.
//
// It has exactly two variants, ServerAgentConfig and ClientAgentConfig.
// The unexported marker method keeps other types out, so a client config
// with an advertise address or a server config without a quorum size
// cannot be built.
type AgentConfig interface {
	// Mode returns the role the config was generated for.
	Mode() Mode

	// Node returns the derived node name.
	Node() string

	// Peers returns the retry_join list.
	Peers() []string

	agentConfig()
}

// ServerAgentConfig configures an agent that takes part in the server quorum.
type ServerAgentConfig struct {
	BindAddr        string   `json:"bind_addr"`
	AdvertiseAddr   string   `json:"advertise_addr"`
	BootstrapExpect int      `json:"bootstrap_expect"`
	Datacenter      string   `json:"datacenter"`
	NodeName        string   `json:"node_name"`
	RetryJoin       []string `json:"retry_join"`
}

// ClientAgentConfig configures an agent that joins an existing quorum.
type ClientAgentConfig struct {
	BindAddr   string   `json:"bind_addr"`
	Datacenter string   `json:"datacenter"`
	NodeName   string   `json:"node_name"`
	RetryJoin  []string `json:"retry_join"`
}

func (*ServerAgentConfig) Mode() Mode        { return ModeServer }
func (c *ServerAgentConfig) Node() string    { return c.NodeName }
func (c *ServerAgentConfig) Peers() []string { return c.RetryJoin }
func (*ServerAgentConfig) agentConfig()      {}

func (*ClientAgentConfig) Mode() Mode        { return ModeClient }
func (c *ClientAgentConfig) Node() string    { return c.NodeName }
func (c *ClientAgentConfig) Peers() []string { return c.RetryJoin }
func (*ClientAgentConfig) agentConfig()      {}
