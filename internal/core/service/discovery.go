package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
	"github.com/yndnr/meshboot/internal/telemetry/metric"
	"github.com/yndnr/meshboot/internal/telemetry/tracer"
)

// TaskRegistry is the orchestrator task registry the discoverer polls.
type TaskRegistry interface {
	// ListRunningTasks returns up to maxResults references of running
	// tasks of the given family in the given cluster.
	ListRunningTasks(ctx context.Context, cluster, family string, maxResults int) ([]string, error)

	// DescribeTasks returns descriptions for the given task references.
	DescribeTasks(ctx context.Context, cluster string, taskRefs []string) ([]domain.TaskDescription, error)
}

// DiscoverRequest describes one peer discovery run.
type DiscoverRequest struct {
	// Cluster is the cluster to search.
	Cluster string

	// Family is the task family of the peers.
	Family string

	// TargetCount is the number of running peers to wait for.
	TargetCount int

	// PollInterval is the pause between registry polls.
	PollInterval time.Duration

	// MaxWait bounds the whole discovery. Zero is only accepted together
	// with Unbounded.
	MaxWait time.Duration

	// Unbounded waits forever for the quorum when MaxWait is zero.
	Unbounded bool
}

// Validate checks the request.
func (r *DiscoverRequest) Validate() error {
	if r.Cluster == "" {
		return domain.ErrInvalidArgument.WithDetails("cluster is required")
	}
	if r.Family == "" {
		return domain.ErrInvalidArgument.WithDetails("family is required")
	}
	if r.TargetCount < 1 {
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("target count must be at least 1, got %d", r.TargetCount))
	}
	if r.PollInterval <= 0 {
		return domain.ErrInvalidArgument.WithDetails("poll interval must be positive")
	}
	if r.MaxWait < 0 {
		return domain.ErrInvalidArgument.WithDetails("max wait must not be negative")
	}
	if r.MaxWait == 0 && !r.Unbounded {
		return domain.ErrInvalidArgument.WithDetails("max wait is required unless unbounded waiting is enabled")
	}
	return nil
}

// PeerDiscoverer waits for a quorum of running peer tasks and returns
// their private addresses.
type PeerDiscoverer struct {
	registry TaskRegistry
	metrics  *metric.Registry
	log      logger.Logger
}

// NewPeerDiscoverer creates a PeerDiscoverer. metrics may be nil.
func NewPeerDiscoverer(registry TaskRegistry, metrics *metric.Registry, log logger.Logger) *PeerDiscoverer {
	if log == nil {
		log = logger.Default()
	}
	return &PeerDiscoverer{
		registry: registry,
		metrics:  metrics,
		log:      log,
	}
}

// Discover blocks until the registry reports req.TargetCount distinct
// running tasks, then returns exactly that many private IPv4 addresses in
// listing order.
//
// Fewer running tasks than the target is normal bootstrap progress: it is
// logged and polled again after req.PollInterval. The last wait is cut short
// at the req.MaxWait deadline so one final poll runs before giving up.
// Registry failures end the run with ErrRegistry, an exhausted req.MaxWait
// with ErrDiscoveryTimeout.
func (d *PeerDiscoverer) Discover(ctx context.Context, req DiscoverRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, "discovery.Discover")
	defer span.End()
	span.SetAttribute("cluster", req.Cluster)
	span.SetAttribute("family", req.Family)
	span.SetAttribute("target_count", req.TargetCount)

	start := time.Now()
	log := d.log.With("cluster", req.Cluster, "family", req.Family, "target_count", req.TargetCount)

	// Registry calls get one poll interval past the deadline so the final
	// poll can answer.
	parent := ctx
	var deadline time.Time
	if req.MaxWait > 0 {
		deadline = start.Add(req.MaxWait)
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline.Add(req.PollInterval))
		defer cancel()
	}

	// The first token is available immediately, later ones once per interval.
	limiter := rate.NewLimiter(rate.Every(req.PollInterval), 1)

	var refs []string
	for round := 1; ; round++ {
		if err := d.wait(parent, limiter, deadline); err != nil {
			return nil, err
		}

		listed, err := d.registry.ListRunningTasks(ctx, req.Cluster, req.Family, req.TargetCount)
		d.metrics.ObservePollRound()
		if err != nil {
			if parent.Err() != nil {
				return nil, parent.Err()
			}
			if timedOut(parent, ctx) {
				return nil, d.timeoutError(req, start, 0, err)
			}
			span.RecordError(err)
			return nil, domain.ErrRegistry.WithDetails("list tasks").WithCause(err)
		}

		unique := uniqueRefs(listed)
		log.Info("listed running tasks", "round", round, "task_refs", unique)

		if len(unique) >= req.TargetCount {
			refs = unique[:req.TargetCount]
			break
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, d.timeoutError(req, start, len(unique), nil)
		}

		log.Info("waiting for more tasks to bootstrap",
			"missing", req.TargetCount-len(unique),
			"poll_interval", req.PollInterval.String())
	}

	ips, err := d.describe(ctx, req.Cluster, refs)
	if err != nil {
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		if timedOut(parent, ctx) {
			return nil, d.timeoutError(req, start, len(refs), err)
		}
		span.RecordError(err)
		return nil, err
	}

	d.metrics.ObserveDiscovery(len(ips), time.Since(start))
	log.Info("discovered peers", "peer_ips", ips, "elapsed", time.Since(start).String())

	return ips, nil
}

// wait blocks until the limiter grants the next poll. A non-zero deadline
// caps the wait. Only cancellation of ctx ends it with an error.
func (d *PeerDiscoverer) wait(ctx context.Context, limiter *rate.Limiter, deadline time.Time) error {
	delay := limiter.Reserve().Delay()
	if !deadline.IsZero() {
		if remaining := time.Until(deadline); remaining < delay {
			delay = max(remaining, 0)
		}
	}
	if delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// uniqueRefs drops repeated task references, keeping the first occurrence.
func uniqueRefs(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// describe fetches the task details and extracts one address per task in
// the order of refs.
func (d *PeerDiscoverer) describe(ctx context.Context, cluster string, refs []string) ([]string, error) {
	tasks, err := d.registry.DescribeTasks(ctx, cluster, refs)
	if err != nil {
		return nil, domain.ErrRegistry.WithDetails("describe tasks").WithCause(err)
	}

	byRef := make(map[string]domain.TaskDescription, len(tasks))
	for _, t := range tasks {
		byRef[t.TaskRef] = t
	}

	ips := make([]string, 0, len(refs))
	for _, ref := range refs {
		task, ok := byRef[ref]
		if !ok {
			return nil, domain.ErrRegistry.WithDetails(fmt.Sprintf("task %s missing from describe response", ref))
		}
		ip, ok := task.PrivateIPv4()
		if !ok {
			return nil, domain.ErrRegistry.WithDetails(fmt.Sprintf("task %s has no private IPv4 address", ref))
		}
		ips = append(ips, ip)
	}

	return ips, nil
}

// timeoutError reports an exhausted MaxWait with the time actually spent.
func (d *PeerDiscoverer) timeoutError(req DiscoverRequest, start time.Time, found int, cause error) error {
	elapsed := time.Since(start).Round(time.Millisecond)

	d.log.Warn("peer discovery timed out",
		"max_wait", req.MaxWait.String(),
		"elapsed", elapsed.String(),
		"found", found)

	err := domain.ErrDiscoveryTimeout.
		WithDetails(fmt.Sprintf("found %d of %d running tasks after %s (max wait %s)",
			found, req.TargetCount, elapsed, req.MaxWait))
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// timedOut reports whether ctx expired while its parent is still live.
func timedOut(parent, ctx context.Context) bool {
	return parent.Err() == nil && ctx.Err() != nil
}
