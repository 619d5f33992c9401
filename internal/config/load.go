package config

import (
	"fmt"

	"github.com/yndnr/sessbox-go/internal/infra/confloader"
)

// Load layers the configuration file at path, SESSBOX_* environment
// variables and flag overrides over Default, then verifies the result.
// An empty path selects DefaultConfigFile, which need not exist.
func Load(path string, overrides map[string]any) (*Config, error) {
	opts := []confloader.Option{confloader.WithConfigFile(path)}
	if path == "" {
		opts = []confloader.Option{
			confloader.WithConfigFile(DefaultConfigFile()),
			confloader.WithOptionalFile(),
		}
	}
	l := confloader.NewLoader(opts...)

	cfg := Default()
	if err := l.LoadFile(l.FilePath()); err != nil {
		return nil, err
	}
	if err := l.LoadEnv(); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := l.LoadMap(overrides); err != nil {
			return nil, err
		}
	}
	if err := l.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
