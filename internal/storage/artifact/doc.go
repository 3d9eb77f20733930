// Package artifact writes the documents meshboot produces (agent
// configuration, service descriptor).
//
// Files are written to a temporary file in the destination directory,
// synced and renamed over the target, so readers never observe a
// partially written document. The path "-" (or print mode) sends the
// document to stdout instead.
package artifact
