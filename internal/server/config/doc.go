// Package config defines the contact service configuration.
//
//   - spec.go: ContactConfig struct definition (koanf tags)
//   - default.go: default values
//   - verify.go: semantic validation run once at startup
//   - sanitize.go: copy with secrets masked, for logging and the CLI
//
// Configuration is loaded via internal/infra/confloader from a YAML file
// and SEPT3_ environment variables on top of Default().
package config
