package testsupport

import (
	"path/filepath"
	"testing"

	"tunesweep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Logging.Level = "error"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithThreshold overrides the album grouping threshold.
func WithThreshold(n int) ConfigOption {
	return func(c *config.Config) { c.Albums.Threshold = n }
}

// WithPlacement overrides the album placement mode.
func WithPlacement(mode string) ConfigOption {
	return func(c *config.Config) { c.Albums.Placement = mode }
}

// WithoutHistory disables the run history database.
func WithoutHistory() ConfigOption {
	return func(c *config.Config) { c.History.Enabled = false }
}
