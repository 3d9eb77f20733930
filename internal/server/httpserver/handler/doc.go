// Package handler implements the demo services used to exercise the mesh:
// a counter and a dashboard that calls it.
package handler
