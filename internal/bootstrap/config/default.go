package config

import "time"

// Default configuration values.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetadataTimeout = 5 * time.Second

	DefaultMode          = "client"
	DefaultQuorum        = 1
	DefaultPollInterval  = 30 * time.Second
	DefaultMaxWait       = 10 * time.Minute
	DefaultAgentOutput   = "/consul/config/server-discovery.json"
	DefaultServiceOutput = "/consul/config/service.json"

	DefaultDemoAddr        = ":80"
	DefaultShutdownTimeout = 10 * time.Second
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metadata: MetadataSection{
			Timeout: DefaultMetadataTimeout,
		},
		Discovery: DiscoverySection{
			Mode:         DefaultMode,
			Quorum:       DefaultQuorum,
			PollInterval: DefaultPollInterval,
			MaxWait:      DefaultMaxWait,
			Output:       DefaultAgentOutput,
		},
		Service: ServiceSection{
			Output: DefaultServiceOutput,
		},
		Demo: DemoSection{
			Addr:            DefaultDemoAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}
