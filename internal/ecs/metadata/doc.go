// Package metadata resolves the identity of the running task from the ECS
// task metadata endpoint (v3 or v4).
//
// The endpoint base URI is injected by the ECS agent through
// ECS_CONTAINER_METADATA_URI_V4 (or the older ECS_CONTAINER_METADATA_URI);
// the CLI binds both variables to the metadata.uri setting.
package metadata
