package testsupport

import (
	"path/filepath"
	"testing"

	"signdata/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Download.URLTemplate = "http://127.0.0.1:0/{name}.zip"
	cfg.Download.MaxAttempts = 1
	cfg.Download.RequestsPerMinute = 6000
	cfg.Cache.MinFreeGiB = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return &cfg
}

// WithSchema selects the record schema. The manifest directory follows the
// schema unless a test sets dataset.manifest_dir itself.
func WithSchema(schema string) ConfigOption {
	return func(c *config.Config) { c.Dataset.Schema = schema }
}

// WithURLTemplate points downloads at a test server.
func WithURLTemplate(template string) ConfigOption {
	return func(c *config.Config) { c.Download.URLTemplate = template }
}

// WithScenarios limits the corpus to the given scenarios and instance count.
func WithScenarios(instances int, scenarios ...string) ConfigOption {
	return func(c *config.Config) {
		c.Dataset.Scenarios = scenarios
		c.Dataset.Instances = instances
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
