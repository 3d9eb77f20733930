// Package domain defines the core domain models for meshboot.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - TaskIdentity: runtime identity of the current ECS task
//   - Mode: agent role (server or client)
//   - AgentConfig: mode-specific agent configuration (ServerAgentConfig, ClientAgentConfig)
//   - Naming: deterministic node names and service instance ids
//   - Errors: domain-specific error definitions
package domain
