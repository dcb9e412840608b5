package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"signdata/internal/build"
	"signdata/internal/catalog"
	"signdata/internal/config"
	"signdata/internal/download"
	"signdata/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// openCatalog opens the build catalog. Callers close the store.
func (c *commandContext) openCatalog() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg.CatalogPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("open build catalog: %w", err)
	}
	return store, nil
}

func (c *commandContext) downloadManager(progress io.Writer) (*download.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	opts := []download.Option{download.WithLogger(logger)}
	if progress != nil {
		opts = append(opts, download.WithProgress(progress))
	}
	return download.NewManager(cfg, opts...), nil
}

// newBuilder wires a builder to the download cache and, when enabled, the
// catalog. The returned func releases the catalog.
func (c *commandContext) newBuilder(cmd *cobra.Command, withCatalog bool) (*build.Builder, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	registry, err := build.LoadRegistry(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load checksum registry: %w", err)
	}
	var progress io.Writer
	if !c.jsonOutput() && isTerminal(cmd.ErrOrStderr()) {
		progress = cmd.ErrOrStderr()
	}
	manager, err := c.downloadManager(progress)
	if err != nil {
		return nil, nil, err
	}

	opts := []build.Option{build.WithLogger(logger)}
	release := func() {}
	if withCatalog && cfg.Build.Catalog {
		store, err := c.openCatalog()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, build.WithCatalog(store))
		release = func() { _ = store.Close() }
	}
	return build.New(cfg, manager, registry, opts...), release, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
