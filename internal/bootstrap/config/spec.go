package config

import "time"

// Config is the root configuration for meshboot.
type Config struct {
	Log       LogSection       `koanf:"log"`
	Metadata  MetadataSection  `koanf:"metadata"`
	AWS       AWSSection       `koanf:"aws"`
	Discovery DiscoverySection `koanf:"discovery"`
	Service   ServiceSection   `koanf:"service"`
	Metrics   MetricsSection   `koanf:"metrics"`
	Tracing   TracingSection   `koanf:"tracing"`
	Demo      DemoSection      `koanf:"demo"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetadataSection configures the task metadata endpoint.
type MetadataSection struct {
	URI     string        `koanf:"uri"`
	Timeout time.Duration `koanf:"timeout"`
}

// AWSSection configures the AWS SDK.
type AWSSection struct {
	Region string `koanf:"region"`
}

// DiscoverySection configures peer discovery and agent config synthesis.
type DiscoverySection struct {
	Mode string `koanf:"mode"`
	// Cluster defaults to the cluster reported by the task metadata.
	Cluster      string        `koanf:"cluster"`
	Family       string        `koanf:"family"`
	Quorum       int           `koanf:"quorum"`
	Datacenter   string        `koanf:"datacenter"`
	PollInterval time.Duration `koanf:"poll_interval"`
	MaxWait      time.Duration `koanf:"max_wait"`
	// Unbounded allows MaxWait to be zero (wait forever).
	Unbounded bool   `koanf:"unbounded"`
	Output    string `koanf:"output"`
}

// ServiceSection configures service descriptor regeneration.
type ServiceSection struct {
	// Template is the descriptor template inline. TemplateFile is read
	// when Template is empty.
	Template     string `koanf:"template"`
	TemplateFile string `koanf:"template_file"`
	Output       string `koanf:"output"`
	// DefaultZone is used when the task metadata reports no zone.
	DefaultZone string `koanf:"default_zone"`
	Watch       bool   `koanf:"watch"`
}

// MetricsSection configures metrics output for one-shot commands.
type MetricsSection struct {
	// Textfile is a node_exporter textfile path; empty disables it.
	Textfile string `koanf:"textfile"`
}

// TracingSection configures OpenTelemetry tracing.
type TracingSection struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
	CAFile   string `koanf:"ca_file"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
}

// DemoSection configures the demo HTTP services.
type DemoSection struct {
	Addr            string        `koanf:"addr"`
	CounterEndpoint string        `koanf:"counter_endpoint"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}
