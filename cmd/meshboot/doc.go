// Package main provides the entry point for meshboot.
//
// meshboot runs inside ECS tasks next to a Consul agent. It writes the
// agent's discovery config once the expected Consul servers are running,
// writes the Consul service definition of the task, and hosts the counter
// and dashboard demo services.
package main
