package config

import (
	"fmt"

	"github.com/testwebinoue-debug/sept3/internal/infra/confloader"
)

// Load builds the configuration from Default, then path (optional), then
// SEPT3_ environment variables. envFiles are read into the environment
// first; variables already set win over them. The result is not
// verified.
func Load(path string, envFiles ...string) (*ContactConfig, error) {
	return LoadWithOverrides(path, nil, envFiles...)
}

// LoadWithOverrides is Load with a final layer of dotted-key values, such
// as command-line flags. Empty values are ignored.
func LoadWithOverrides(path string, overrides map[string]any, envFiles ...string) (*ContactConfig, error) {
	if err := confloader.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
