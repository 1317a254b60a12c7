package testsupport

import (
	"path/filepath"
	"testing"

	"streamcap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "recordings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Watchlist.Path = filepath.Join(base, "watchlist.toml")
	cfg.Watchlist.PollIntervalSeconds = 1
	cfg.Download.RetryDelaySeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxConcurrent overrides the download concurrency cap.
func WithMaxConcurrent(n int) ConfigOption {
	return func(c *config.Config) {
		c.Download.MaxConcurrent = n
	}
}

// WithMaxRetries overrides the supervisor retry limit.
func WithMaxRetries(n int) ConfigOption {
	return func(c *config.Config) {
		c.Download.MaxRetries = n
	}
}
