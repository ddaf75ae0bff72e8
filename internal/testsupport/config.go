// Package testsupport provides shared helpers for package tests: temp-dir
// backed configs and queue stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"sift/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Collector.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithCollectorURL points the config at a test collector.
func WithCollectorURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Collector.BaseURL = baseURL
	}
}

// WithQueueLimits overrides the queue bounds.
func WithQueueLimits(maxSize, maxRetries, batchSize int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.MaxSize = maxSize
		cfg.Queue.MaxRetries = maxRetries
		cfg.Queue.BatchSize = batchSize
	}
}
