package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

// Verify validates the settings every command shares.
func Verify(cfg *Config) error {
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	if cfg.Metadata.Timeout < 0 {
		return errors.New("metadata.timeout must not be negative")
	}
	if (cfg.Tracing.CertFile == "") != (cfg.Tracing.KeyFile == "") {
		return errors.New("tracing.cert_file and tracing.key_file must be set together")
	}
	return nil
}

// VerifyMetadata validates the metadata endpoint settings.
func VerifyMetadata(cfg *MetadataSection) error {
	if cfg.URI == "" {
		return errors.New("metadata.uri is required (ECS_CONTAINER_METADATA_URI_V4 is not set)")
	}
	if _, err := url.Parse(cfg.URI); err != nil {
		return fmt.Errorf("metadata.uri: %w", err)
	}
	return nil
}

// VerifyDiscovery validates the discovery section.
func VerifyDiscovery(cfg *DiscoverySection) error {
	if _, err := domain.ParseMode(cfg.Mode); err != nil {
		return err
	}
	if cfg.Family == "" {
		return errors.New("discovery.family is required")
	}
	if cfg.Quorum < 1 {
		return fmt.Errorf("discovery.quorum must be at least 1, got %d", cfg.Quorum)
	}
	if cfg.PollInterval <= 0 {
		return errors.New("discovery.poll_interval must be positive")
	}
	if cfg.MaxWait < 0 {
		return errors.New("discovery.max_wait must not be negative")
	}
	if cfg.MaxWait == 0 && !cfg.Unbounded {
		return errors.New("discovery.max_wait is required; set discovery.unbounded to wait forever")
	}
	if cfg.Output == "" {
		return errors.New("discovery.output is required")
	}
	return nil
}

// VerifyService validates the service section.
func VerifyService(cfg *ServiceSection) error {
	if cfg.Template == "" && cfg.TemplateFile == "" {
		return errors.New("service.template or service.template_file is required (SERVICE_CONFIG is not set)")
	}
	if cfg.Watch && cfg.TemplateFile == "" {
		return errors.New("service.watch requires service.template_file")
	}
	if cfg.Output == "" {
		return errors.New("service.output is required")
	}
	return nil
}

// VerifyDemo validates the demo service section.
func VerifyDemo(cfg *DemoSection, needCounter bool) error {
	if cfg.Addr == "" {
		return errors.New("demo.addr is required")
	}
	if needCounter && cfg.CounterEndpoint == "" {
		return errors.New("demo.counter_endpoint is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("demo.shutdown_timeout must be positive")
	}
	return nil
}
