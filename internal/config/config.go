package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir  string `toml:"cache_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Download configures how remote archives are fetched and verified.
type Download struct {
	// URLTemplate is the archive URL with a {name} placeholder.
	URLTemplate       string `toml:"url_template"`
	ChecksumsPath     string `toml:"checksums_path"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxAttempts       int    `toml:"max_attempts"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Concurrency       int    `toml:"concurrency"`
	// Extract unpacks archives after download. When false the generator
	// indexes the archive listing and emits references into the archive.
	Extract bool `toml:"extract"`
}

// Dataset selects the record schema and the corpus layout.
type Dataset struct {
	Schema      string   `toml:"schema"`     // "rich" or "simple"
	OnMissing   string   `toml:"on_missing"` // "fail" or "skip"
	Scenarios   []string `toml:"scenarios"`
	Instances   int      `toml:"instances"`
	Splits      []string `toml:"splits"`
	ManifestDir string   `toml:"manifest_dir"`

	// NormalizeText rewrites sentence text and glosses to Unicode NFC.
	NormalizeText bool `toml:"normalize_text"`
}

// Build configures the build orchestrator outputs.
type Build struct {
	Workers    int  `toml:"workers"`
	WriteJSONL bool `toml:"write_jsonl"`
	Catalog    bool `toml:"catalog"`
}

// Cache configures download cache housekeeping.
type Cache struct {
	MaxGiB     int `toml:"max_gib"`
	MinFreeGiB int `toml:"min_free_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for signdata.
//
// Configuration sections by subsystem:
//   - Paths: cache, output and log directories
//   - Download: archive URL template, checksum registry, retries and pacing
//   - Dataset: record schema, lookup failure policy, scenarios and splits
//   - Build: split workers and output sinks
//   - Cache: download cache size budget and free-space floor
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
	Dataset  Dataset  `toml:"dataset"`
	Build    Build    `toml:"build"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. The second and third results are the
// resolved config path and whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("signdata.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the location of the SQLite build catalog.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.OutputDir, "catalog.db")
}

// SplitNames returns the configured split names, falling back to the
// canonical names of the selected schema.
func (c *Config) SplitNames() []string {
	if len(c.Dataset.Splits) > 0 {
		return append([]string(nil), c.Dataset.Splits...)
	}
	if c.Dataset.Schema == SchemaSimple {
		return []string{"train", "validation", "test"}
	}
	return []string{"GSL-SD-train", "GSL-SD-val", "GSL-SD-test"}
}

// ManifestDirectory returns dataset.manifest_dir, falling back to the
// directory the selected schema ships its manifests in.
func (c *Config) ManifestDirectory() string {
	if dir := strings.Trim(strings.TrimSpace(c.Dataset.ManifestDir), "/"); dir != "" {
		return dir
	}
	if strings.EqualFold(strings.TrimSpace(c.Dataset.Schema), SchemaSimple) {
		return defaultSimpleManifestDir
	}
	return defaultRichManifestDir
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
