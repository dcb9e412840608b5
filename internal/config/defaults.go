package config

// Schema variants accepted by dataset.schema.
const (
	SchemaRich   = "rich"
	SchemaSimple = "simple"
)

// Lookup failure policies accepted by dataset.on_missing.
const (
	OnMissingFail = "fail"
	OnMissingSkip = "skip"
)

const (
	defaultConfigPath        = "~/.config/signdata/config.toml"
	defaultCacheDir          = "~/.cache/signdata"
	defaultOutputDir         = "~/.local/share/signdata/datasets"
	defaultLogDir            = "~/.local/share/signdata/logs"
	defaultURLTemplate       = "https://zenodo.org/records/4756317/files/{name}.zip?download=1"
	defaultTimeoutSeconds    = 3600
	defaultMaxAttempts       = 3
	defaultRequestsPerMinute = 30
	defaultConcurrency       = 2
	defaultInstances         = 5
	defaultRichManifestDir   = "GSL_continuous"
	defaultSimpleManifestDir = "GSL_isolated"
	defaultWorkers           = 3
	defaultCacheMaxGiB       = 200
	defaultCacheMinFreeGiB   = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// defaultScenarios are the three dialogue settings recorded in the corpus.
var defaultScenarios = []string{"health", "kep", "police"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:  defaultCacheDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Download: Download{
			URLTemplate:       defaultURLTemplate,
			TimeoutSeconds:    defaultTimeoutSeconds,
			MaxAttempts:       defaultMaxAttempts,
			RequestsPerMinute: defaultRequestsPerMinute,
			Concurrency:       defaultConcurrency,
			Extract:           true,
		},
		Dataset: Dataset{
			Schema:    SchemaRich,
			OnMissing: OnMissingFail,
			Scenarios: append([]string(nil), defaultScenarios...),
			Instances: defaultInstances,
		},
		Build: Build{
			Workers:    defaultWorkers,
			WriteJSONL: true,
			Catalog:    true,
		},
		Cache: Cache{
			MaxGiB:     defaultCacheMaxGiB,
			MinFreeGiB: defaultCacheMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
