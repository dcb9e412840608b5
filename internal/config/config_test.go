package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"signdata/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SIGNDATA_CACHE_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "signdata", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if want := filepath.Join(tempHome, ".cache", "signdata"); cfg.Paths.CacheDir != want {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, want)
	}
	if cfg.Dataset.Schema != config.SchemaRich {
		t.Fatalf("expected rich schema by default, got %q", cfg.Dataset.Schema)
	}
	if cfg.Dataset.ManifestDir != "GSL_continuous" {
		t.Fatalf("unexpected manifest dir: %q", cfg.Dataset.ManifestDir)
	}
	if got := strings.Join(cfg.SplitNames(), ","); got != "GSL-SD-train,GSL-SD-val,GSL-SD-test" {
		t.Fatalf("unexpected default splits: %s", got)
	}
	if !cfg.Download.Extract {
		t.Fatal("expected extraction enabled by default")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPathSimpleSchema(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "signdata.toml")

	type payload struct {
		Paths struct {
			CacheDir string `toml:"cache_dir"`
		} `toml:"paths"`
		Dataset struct {
			Schema    string   `toml:"schema"`
			OnMissing string   `toml:"on_missing"`
			Scenarios []string `toml:"scenarios"`
		} `toml:"dataset"`
	}
	custom := payload{}
	custom.Paths.CacheDir = filepath.Join(tempDir, "cache")
	custom.Dataset.Schema = " Simple "
	custom.Dataset.OnMissing = "SKIP"
	custom.Dataset.Scenarios = []string{"Health", " police "}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: exists=%v resolved=%q", exists, resolved)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempDir, "cache") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.Dataset.Schema != config.SchemaSimple || cfg.Dataset.OnMissing != config.OnMissingSkip {
		t.Fatalf("expected normalized schema and policy, got %q %q", cfg.Dataset.Schema, cfg.Dataset.OnMissing)
	}
	if got := strings.Join(cfg.Dataset.Scenarios, ","); got != "health,police" {
		t.Fatalf("unexpected scenarios: %s", got)
	}
	if cfg.Dataset.ManifestDir != "GSL_isolated" {
		t.Fatalf("unexpected manifest dir: %q", cfg.Dataset.ManifestDir)
	}
	if got := strings.Join(cfg.SplitNames(), ","); got != "train,validation,test" {
		t.Fatalf("unexpected simple splits: %s", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "signdata.toml")
	if err := os.WriteFile(configPath, []byte("[dataset]\nschema_name = \"rich\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"schema", func(c *config.Config) { c.Dataset.Schema = "csv" }, "dataset.schema"},
		{"on missing", func(c *config.Config) { c.Dataset.OnMissing = "ignore" }, "dataset.on_missing"},
		{"template", func(c *config.Config) { c.Download.URLTemplate = "https://example.com/a.zip" }, "{name}"},
		{"attempts", func(c *config.Config) { c.Download.MaxAttempts = 0 }, "download.max_attempts"},
		{"instances", func(c *config.Config) { c.Dataset.Instances = 0 }, "dataset.instances"},
		{"duplicate scenario", func(c *config.Config) { c.Dataset.Scenarios = []string{"kep", "kep"} }, "more than once"},
		{"scenario digits", func(c *config.Config) { c.Dataset.Scenarios = []string{"kep2"} }, "only lowercase ASCII letters"},
		{"workers", func(c *config.Config) { c.Build.Workers = 0 }, "build.workers"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.CacheDir = t.TempDir()
			cfg.Paths.OutputDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Download.URLTemplate != config.Default().Download.URLTemplate {
		t.Fatalf("unexpected url template: %q", cfg.Download.URLTemplate)
	}
}

func TestManifestDirectoryFollowsSchemaWithoutLoad(t *testing.T) {
	cfg := config.Default()
	if got := cfg.ManifestDirectory(); got != "GSL_continuous" {
		t.Fatalf("rich default manifest dir = %q", got)
	}
	cfg.Dataset.Schema = config.SchemaSimple
	if got := cfg.ManifestDirectory(); got != "GSL_isolated" {
		t.Fatalf("simple default manifest dir = %q", got)
	}
	cfg.Dataset.ManifestDir = "/custom/"
	if got := cfg.ManifestDirectory(); got != "custom" {
		t.Fatalf("explicit manifest dir = %q", got)
	}
}
