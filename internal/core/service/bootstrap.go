package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
	"github.com/yndnr/meshboot/internal/telemetry/metric"
	"github.com/yndnr/meshboot/internal/telemetry/tracer"
)

// IdentityResolver resolves the runtime identity of the current task.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context) (domain.TaskIdentity, error)
}

// ArtifactWriter persists generated documents.
type ArtifactWriter interface {
	Write(path string, data []byte) error
}

// BootstrapConfig holds the parameters of both pipelines.
type BootstrapConfig struct {
	// Mode selects the agent role.
	Mode domain.Mode

	// Cluster is the cluster the server tasks run in. Empty means the
	// cluster reported by the task metadata.
	Cluster string

	// Family is the task family of the server tasks.
	Family string

	// Quorum is the bootstrap_expect value and the number of peers to
	// wait for.
	Quorum int

	// Datacenter is the agent datacenter, usually the AWS region.
	Datacenter string

	// PollInterval is the pause between registry polls.
	PollInterval time.Duration

	// MaxWait bounds peer discovery. Zero requires Unbounded.
	MaxWait time.Duration

	// Unbounded waits for the quorum without a deadline.
	Unbounded bool

	// AgentConfigPath is where the agent config is written.
	AgentConfigPath string

	// ServiceDescriptorPath is where the service descriptor is written.
	ServiceDescriptorPath string

	// DefaultZone is used when the task metadata reports no zone.
	DefaultZone string
}

// Bootstrapper runs the discovery pipeline (identity, peers, agent config)
// and the registration pipeline (identity, service descriptor).
//
// The identity is resolved at most once per Bootstrapper.
type Bootstrapper struct {
	cfg        BootstrapConfig
	identity   IdentityResolver
	discoverer *PeerDiscoverer
	writer     ArtifactWriter
	metrics    *metric.Registry
	log        logger.Logger

	resolved *domain.TaskIdentity
}

// NewBootstrapper creates a Bootstrapper. registry may be nil when only
// the registration pipeline is used; metrics may be nil.
func NewBootstrapper(cfg BootstrapConfig, identity IdentityResolver, registry TaskRegistry, writer ArtifactWriter, metrics *metric.Registry, log logger.Logger) *Bootstrapper {
	if log == nil {
		log = logger.Default()
	}

	b := &Bootstrapper{
		cfg:      cfg,
		identity: identity,
		writer:   writer,
		metrics:  metrics,
		log:      log,
	}
	if registry != nil {
		b.discoverer = NewPeerDiscoverer(registry, metrics, log)
	}
	return b
}

// Identity resolves and caches the task identity.
func (b *Bootstrapper) Identity(ctx context.Context) (domain.TaskIdentity, error) {
	if b.resolved != nil {
		return *b.resolved, nil
	}

	ctx, span := tracer.StartSpan(ctx, "bootstrap.ResolveIdentity")
	defer span.End()

	id, err := b.identity.ResolveIdentity(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.TaskIdentity{}, err
	}

	b.log.Info("resolved task identity",
		"task_id", id.TaskID,
		"family", id.Family,
		"ip", id.IP,
		"zone", id.Zone,
		"cluster", id.Cluster)

	b.resolved = &id
	return id, nil
}

// GenerateAgentConfig resolves the identity, waits for the server quorum,
// synthesizes the agent config and writes it to cfg.AgentConfigPath.
// Nothing is written unless every step succeeds.
func (b *Bootstrapper) GenerateAgentConfig(ctx context.Context) (domain.AgentConfig, error) {
	if b.discoverer == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("no task registry configured")
	}

	id, err := b.Identity(ctx)
	if err != nil {
		return nil, err
	}

	cluster := b.cfg.Cluster
	if cluster == "" {
		cluster = id.Cluster
	}
	if cluster == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("cluster not configured and not reported by task metadata")
	}

	peers, err := b.discoverer.Discover(ctx, DiscoverRequest{
		Cluster:      cluster,
		Family:       b.cfg.Family,
		TargetCount:  b.cfg.Quorum,
		PollInterval: b.cfg.PollInterval,
		MaxWait:      b.cfg.MaxWait,
		Unbounded:    b.cfg.Unbounded,
	})
	if err != nil {
		return nil, err
	}

	cfg, err := Synthesize(b.cfg.Mode, id, peers, b.cfg.Quorum, b.cfg.Datacenter)
	if err != nil {
		return nil, err
	}

	data, err := MarshalAgentConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode agent config: %w", err)
	}

	b.log.Info("generated agent config",
		"mode", cfg.Mode().String(),
		"node_name", cfg.Node(),
		"retry_join", cfg.Peers())

	if err := b.write("agent_config", b.cfg.AgentConfigPath, data); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GenerateServiceDescriptor resolves the identity, regenerates the given
// template and writes it to cfg.ServiceDescriptorPath.
func (b *Bootstrapper) GenerateServiceDescriptor(ctx context.Context, template []byte) ([]byte, error) {
	id, err := b.Identity(ctx)
	if err != nil {
		return nil, err
	}

	_, span := tracer.StartSpan(ctx, "bootstrap.Regenerate")
	out, err := Regenerate(template, id, b.cfg.DefaultZone)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	span.End()

	b.log.Info("generated service descriptor", "instance_id", domain.InstanceID(id))
	b.log.Debug("service descriptor", "document", string(out))

	if err := b.write("service_descriptor", b.cfg.ServiceDescriptorPath, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (b *Bootstrapper) write(kind, path string, data []byte) error {
	b.log.Info("saving artifact", "kind", kind, "path", path)
	if err := b.writer.Write(path, data); err != nil {
		return err
	}
	b.metrics.ObserveArtifact(kind)
	b.log.Info("saved artifact", "kind", kind, "path", path, "bytes", len(data))
	return nil
}
