// Package registry adapts the Amazon ECS API to the task registry the
// peer discoverer polls.
package registry
