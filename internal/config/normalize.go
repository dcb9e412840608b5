package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDownload(); err != nil {
		return err
	}
	c.normalizeDataset()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SIGNDATA_CACHE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload() error {
	c.Download.URLTemplate = strings.TrimSpace(c.Download.URLTemplate)
	if c.Download.URLTemplate == "" {
		c.Download.URLTemplate = defaultURLTemplate
	}
	if c.Download.ChecksumsPath == "" {
		if value, ok := os.LookupEnv("SIGNDATA_CHECKSUMS"); ok {
			c.Download.ChecksumsPath = value
		}
	}
	var err error
	if c.Download.ChecksumsPath, err = expandPath(strings.TrimSpace(c.Download.ChecksumsPath)); err != nil {
		return fmt.Errorf("download.checksums_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDataset() {
	c.Dataset.Schema = strings.ToLower(strings.TrimSpace(c.Dataset.Schema))
	if c.Dataset.Schema == "" {
		c.Dataset.Schema = SchemaRich
	}
	c.Dataset.OnMissing = strings.ToLower(strings.TrimSpace(c.Dataset.OnMissing))
	if c.Dataset.OnMissing == "" {
		c.Dataset.OnMissing = OnMissingFail
	}

	scenarios := make([]string, 0, len(c.Dataset.Scenarios))
	for _, s := range c.Dataset.Scenarios {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			scenarios = append(scenarios, s)
		}
	}
	c.Dataset.Scenarios = scenarios

	splits := make([]string, 0, len(c.Dataset.Splits))
	for _, s := range c.Dataset.Splits {
		if s = strings.TrimSpace(s); s != "" {
			splits = append(splits, s)
		}
	}
	c.Dataset.Splits = splits

	c.Dataset.ManifestDir = c.ManifestDirectory()
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
