package preflight

import (
	"context"

	"signdata/internal/assets"
	"signdata/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Options toggles optional checks.
type Options struct {
	// Offline skips the archive host probe.
	Offline bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckFreeSpace("Cache free space", cfg.Paths.CacheDir, gib(cfg.Cache.MinFreeGiB)))

	if cfg.Download.ChecksumsPath != "" {
		results = append(results, CheckChecksums(cfg.Download.ChecksumsPath))
	}

	if cfg.Build.Catalog {
		results = append(results, CheckCatalog(ctx, cfg.CatalogPath()))
	}

	if !opts.Offline {
		results = append(results, CheckArchiveHost(ctx, nil, assets.URLFor(cfg.Download.URLTemplate, assets.SplitArchiveName)))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func gib(n int) uint64 {
	if n <= 0 {
		return 0
	}
	return uint64(n) << 30
}
