// Package command provides CLI command definitions for meshboot.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, config loading
//   - discover.go: Peer discovery and agent config generation
//   - service.go: Service descriptor regeneration
//   - identity.go: Task identity lookup
//   - serve.go: Demo counter and dashboard services
//   - version.go: Build information
//
// Commands follow a consistent pattern of loading configuration,
// wiring the core services and writing the produced artifact.
package command
