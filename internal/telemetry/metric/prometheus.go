package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meshboot"

// Registry holds all application metrics.
//
// All Observe methods are safe to call on a nil *Registry.
type Registry struct {
	registry *prometheus.Registry

	// Discovery metrics
	PollRounds        prometheus.Counter
	DiscoveredPeers   prometheus.Gauge
	DiscoveryDuration prometheus.Histogram

	// Artifact metrics
	ArtifactsWritten *prometheus.CounterVec

	// Demo service metrics
	CounterValue    prometheus.Gauge
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a new metrics registry with all meshboot metrics
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		PollRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "poll_rounds_total",
			Help:      "Number of ListTasks rounds issued while waiting for peers.",
		}),
		DiscoveredPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "peers",
			Help:      "Number of peer addresses returned by the last discovery.",
		}),
		DiscoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "duration_seconds",
			Help:      "Time spent waiting for the expected number of peers.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifact",
			Name:      "written_total",
			Help:      "Number of artifacts written, by kind.",
		}, []string{"kind"}),
		CounterValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "counter",
			Name:      "value",
			Help:      "Current value of the demo counter.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by status code and method.",
		}, []string{"code", "method"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}

	r.registry.MustRegister(
		r.PollRounds,
		r.DiscoveredPeers,
		r.DiscoveryDuration,
		r.ArtifactsWritten,
		r.CounterValue,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
// Long-running servers call this; one-shot commands leave it off so the
// textfile stays small.
func (r *Registry) WithRuntimeCollectors() *Registry {
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObservePollRound counts one ListTasks round.
func (r *Registry) ObservePollRound() {
	if r == nil {
		return
	}
	r.PollRounds.Inc()
}

// ObserveDiscovery records a completed discovery.
func (r *Registry) ObserveDiscovery(peers int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.DiscoveredPeers.Set(float64(peers))
	r.DiscoveryDuration.Observe(elapsed.Seconds())
}

// ObserveArtifact counts a written artifact of the given kind.
func (r *Registry) ObserveArtifact(kind string) {
	if r == nil {
		return
	}
	r.ArtifactsWritten.WithLabelValues(kind).Inc()
}

// SetCounter publishes the demo counter value.
func (r *Registry) SetCounter(v int64) {
	if r == nil {
		return
	}
	r.CounterValue.Set(float64(v))
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request count and latency metrics.
func (r *Registry) InstrumentHandler(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return promhttp.InstrumentHandlerDuration(r.RequestDuration,
		promhttp.InstrumentHandlerCounter(r.RequestsTotal, next))
}

// WriteTextfile writes all metrics to path in the node_exporter textfile
// format. The file is written to a temporary name and renamed into place.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
