// Package metric provides Prometheus metrics for meshboot.
//
// A Registry owns a private prometheus.Registry so one-shot commands can
// dump it to a node_exporter textfile and the demo services can serve it
// at /metrics without colliding with the global default registry.
package metric
