// Package config defines the meshboot configuration structure.
//
//   - spec.go: configuration sections with koanf tags
//   - default.go: default values
//   - verify.go: validation
//
// Values are layered by internal/infra/confloader on top of Default().
package config
