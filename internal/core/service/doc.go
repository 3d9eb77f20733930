// Package service provides the bootstrap services for meshboot.
//
// Services contain the bootstrap logic and orchestrate operations on
// domain models. They define interfaces for their IO dependencies (task
// registry, identity source, artifact sink) so they can be tested with
// in-memory fakes.
//
// This package contains:
//
//   - PeerDiscoverer: quorum-aware polling of the task registry
//   - Synthesize: mode-specific agent configuration
//   - Regenerate: runtime identity injection into a service descriptor
//   - Bootstrapper: the discovery and registration pipelines
package service
