package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if !strings.Contains(c.Download.URLTemplate, "{name}") {
		return errors.New("download.url_template must contain the {name} placeholder")
	}
	if err := ensurePositiveMap(map[string]int{
		"download.timeout_seconds":     c.Download.TimeoutSeconds,
		"download.max_attempts":        c.Download.MaxAttempts,
		"download.requests_per_minute": c.Download.RequestsPerMinute,
		"download.concurrency":         c.Download.Concurrency,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDataset() error {
	switch c.Dataset.Schema {
	case SchemaRich, SchemaSimple:
	default:
		return fmt.Errorf("dataset.schema must be %q or %q, got %q", SchemaRich, SchemaSimple, c.Dataset.Schema)
	}
	switch c.Dataset.OnMissing {
	case OnMissingFail, OnMissingSkip:
	default:
		return fmt.Errorf("dataset.on_missing must be %q or %q, got %q", OnMissingFail, OnMissingSkip, c.Dataset.OnMissing)
	}
	if len(c.Dataset.Scenarios) == 0 {
		return errors.New("dataset.scenarios must include at least one scenario")
	}
	seen := make(map[string]struct{}, len(c.Dataset.Scenarios))
	for _, s := range c.Dataset.Scenarios {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("dataset.scenarios lists %q more than once", s)
		}
		seen[s] = struct{}{}
		for _, r := range s {
			if r < 'a' || r > 'z' {
				return fmt.Errorf("dataset.scenarios entry %q must contain only lowercase ASCII letters", s)
			}
		}
	}
	if c.Dataset.Instances <= 0 {
		return errors.New("dataset.instances must be positive")
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.Workers <= 0 {
		return errors.New("build.workers must be positive")
	}
	if c.Cache.MaxGiB < 0 {
		return errors.New("cache.max_gib must be >= 0")
	}
	if c.Cache.MinFreeGiB < 0 {
		return errors.New("cache.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
