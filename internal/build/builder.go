package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"signdata/internal/assets"
	"signdata/internal/catalog"
	"signdata/internal/checksums"
	"signdata/internal/config"
	"signdata/internal/fileutil"
	"signdata/internal/gsl"
	"signdata/internal/logging"
)

const (
	lockFileName = ".signdata.lock"
	infoFileName = "dataset_info.json"
	insertBatch  = 500

	stagingSuffix = ".partial"
)

// Builder runs dataset builds for one configuration.
type Builder struct {
	cfg      *config.Config
	resolver *assets.Resolver
	catalog  *catalog.Store
	logger   *slog.Logger
	newID    func() string
}

// Option customizes a Builder.
type Option func(*Builder)

// WithCatalog records builds and examples in store.
func WithCatalog(store *catalog.Store) Option {
	return func(b *Builder) { b.catalog = store }
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logging.NewComponentLogger(logger, "build") }
}

// WithIDGenerator replaces the uuid build id source.
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// New returns a builder fetching archives through downloader and verifying
// them against registry.
func New(cfg *config.Config, downloader assets.Downloader, registry *checksums.Registry, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		logger: logging.NewComponentLogger(nil, "build"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.resolver = assets.NewResolver(downloader, registry,
		assets.WithExtract(cfg.Download.Extract),
		assets.WithConcurrency(cfg.Download.Concurrency),
		assets.WithLogger(b.logger),
	)
	return b
}

// Descriptors returns the supplementary and media descriptors for cfg.
func Descriptors(cfg *config.Config) (supplementary, media []assets.Descriptor) {
	supplementary = assets.SupplementaryDescriptors(cfg.Download.URLTemplate)
	media = assets.MediaDescriptors(cfg.Download.URLTemplate, cfg.Dataset.Scenarios, cfg.Dataset.Instances)
	return supplementary, media
}

// LoadRegistry reads the configured checksum registry, keeping only the
// entries for the archives cfg requests.
func LoadRegistry(cfg *config.Config) (*checksums.Registry, error) {
	supplementary, media := Descriptors(cfg)
	urls := append(assets.URLs(supplementary), assets.URLs(media)...)
	return checksums.Load(cfg.Download.ChecksumsPath, urls...)
}

// Resolve fetches every archive of the configured corpus. The split-manifest
// archives are resolved before the media archives.
func (b *Builder) Resolve(ctx context.Context) (*assets.Resolved, error) {
	supplementary, media := Descriptors(b.cfg)
	manifests, err := b.resolver.Resolve(ctx, supplementary)
	if err != nil {
		return nil, err
	}
	videos, err := b.resolver.Resolve(ctx, media)
	if err != nil {
		return nil, err
	}
	return assets.Merge(manifests, videos)
}

// Run builds splits, or every configured split when none are given.
func (b *Builder) Run(ctx context.Context, splits []string) (Report, error) {
	schema, err := gsl.ParseSchema(b.cfg.Dataset.Schema)
	if err != nil {
		return Report{}, err
	}
	if len(splits) == 0 {
		splits = b.cfg.SplitNames()
	}
	if err := uniqueSplits(splits); err != nil {
		return Report{}, err
	}

	unlock, err := b.lock()
	if err != nil {
		return Report{}, err
	}
	defer unlock()

	started := time.Now()
	report := Report{
		BuildID:   b.newID(),
		Schema:    schema,
		Info:      gsl.DatasetInfo(),
		StartedAt: started,
	}
	report.OutputDir = filepath.Join(b.cfg.Paths.OutputDir, report.BuildID)
	ctx = logging.WithBuildID(ctx, report.BuildID)
	logger := logging.WithContext(ctx, b.logger)

	logging.WarnWithContext(logger, gsl.LicenseNotice, "dataset_license",
		logging.String(logging.FieldErrorHint, "review the dataset terms before redistribution"),
		logging.String(logging.FieldImpact, "informational"),
	)

	if err := b.beginCatalog(ctx, report, splits); err != nil {
		return report, err
	}
	logger.Info("build started",
		logging.String("schema", string(schema)),
		logging.Any("splits", splits),
		logging.String("output_dir", report.OutputDir),
	)

	stageDir := filepath.Join(b.cfg.Paths.OutputDir, "."+report.BuildID+stagingSuffix)
	splitReports, assetCount, err := b.run(ctx, schema, splits, report.BuildID, stageDir)
	report.Splits = splitReports
	report.Assets = assetCount
	report.Duration = time.Since(started)
	if err == nil {
		err = b.promote(report, stageDir)
	}
	if err != nil {
		if rerr := os.RemoveAll(stageDir); rerr != nil {
			logger.Warn("remove partial output", logging.String("path", stageDir), logging.Error(rerr))
		}
		kind := FailureKind(err)
		logger.Error("build failed",
			logging.String("failure_kind", kind),
			logging.Error(err),
			logging.String(logging.FieldEventType, "build_failed"),
			logging.String(logging.FieldErrorHint, hintFor(kind)),
		)
		if b.catalog != nil {
			// The caller's context may already be cancelled.
			if ferr := b.catalog.FailBuild(context.WithoutCancel(ctx), report.BuildID, kind, err.Error()); ferr != nil {
				logger.Error("record build failure", logging.Error(ferr))
			}
		}
		return report, fmt.Errorf("build %s: %w", report.BuildID, err)
	}

	if b.catalog != nil {
		if err := b.catalog.FinishBuild(ctx, report.BuildID, report.Examples(), report.Skipped()); err != nil {
			return report, err
		}
	}
	logger.Info("build completed",
		logging.Int("examples", report.Examples()),
		logging.Int("skipped", report.Skipped()),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

// Preview resolves the corpus and generates up to limit examples of one split
// without writing outputs or taking the build lock. A limit of zero or less
// returns every example. The second result counts skipped rows.
func (b *Builder) Preview(ctx context.Context, split string, limit int) ([]gsl.Example, int, error) {
	schema, err := gsl.ParseSchema(b.cfg.Dataset.Schema)
	if err != nil {
		return nil, 0, err
	}
	if err := uniqueSplits([]string{split}); err != nil {
		return nil, 0, err
	}
	resolved, err := b.Resolve(ctx)
	if err != nil {
		return nil, 0, err
	}
	path, err := gsl.ManifestPath(resolved, schema, b.cfg.ManifestDirectory(), split)
	if err != nil {
		return nil, 0, err
	}
	gen := gsl.NewGenerator(path, gsl.NewIndex(resolved), b.generatorOptions(schema, split))
	return gen.Collect(logging.WithSplit(ctx, split), limit)
}

func (b *Builder) generatorOptions(schema gsl.Schema, split string) gsl.Options {
	return gsl.Options{
		Split:         split,
		Schema:        schema,
		OnMissing:     gsl.MissingPolicy(b.cfg.Dataset.OnMissing),
		NormalizeText: b.cfg.Dataset.NormalizeText,
		Logger:        b.logger,
	}
}

func (b *Builder) run(ctx context.Context, schema gsl.Schema, splits []string, buildID, outDir string) ([]SplitReport, int, error) {
	resolved, err := b.Resolve(ctx)
	if err != nil {
		return nil, 0, err
	}

	manifests := make([]string, len(splits))
	for i, split := range splits {
		path, err := gsl.ManifestPath(resolved, schema, b.cfg.ManifestDirectory(), split)
		if err != nil {
			return nil, resolved.Len(), err
		}
		manifests[i] = path
	}

	index := gsl.NewIndex(resolved)
	reports := make([]SplitReport, len(splits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Build.Workers)
	for i, split := range splits {
		g.Go(func() error {
			gen := gsl.NewGenerator(manifests[i], index, b.generatorOptions(schema, split))
			rep, err := b.generateSplit(logging.WithSplit(gctx, split), gen, buildID, outDir)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, resolved.Len(), err
	}
	return reports, resolved.Len(), nil
}

func (b *Builder) generateSplit(ctx context.Context, gen *gsl.Generator, buildID, outDir string) (SplitReport, error) {
	started := time.Now()
	rep := SplitReport{Name: gen.Split()}

	it := gen.Examples(ctx)
	defer it.Close()

	var batch []gsl.Example
	ordinal := 0
	flush := func() error {
		if b.catalog == nil || len(batch) == 0 {
			batch = batch[:0]
			return nil
		}
		if err := b.catalog.InsertExamples(ctx, buildID, gen.Split(), ordinal, batch); err != nil {
			return err
		}
		ordinal += len(batch)
		batch = batch[:0]
		return nil
	}
	emit := func(w io.Writer) error {
		var enc *json.Encoder
		if w != nil {
			enc = json.NewEncoder(w)
			enc.SetEscapeHTML(false)
		}
		for it.Next() {
			ex := it.Example()
			if enc != nil {
				if err := enc.Encode(ex); err != nil {
					return fmt.Errorf("write example %s: %w", ex.Key, err)
				}
			}
			rep.Examples++
			batch = append(batch, ex)
			if len(batch) >= insertBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := it.Err(); err != nil {
			return err
		}
		return flush()
	}

	var err error
	if b.cfg.Build.WriteJSONL {
		rep.Path = filepath.Join(outDir, gen.Split()+".jsonl")
		err = fileutil.WriteAtomic(rep.Path, 0o644, emit)
	} else {
		err = emit(nil)
	}
	rep.Skipped = it.Skipped()
	rep.Duration = time.Since(started)
	if err != nil {
		return rep, err
	}
	logging.WithContext(ctx, b.logger).Info("split generated",
		logging.Int("examples", rep.Examples),
		logging.Int("skipped", rep.Skipped),
		logging.Duration("duration", rep.Duration),
	)
	return rep, nil
}

func (b *Builder) beginCatalog(ctx context.Context, report Report, splits []string) error {
	if b.catalog == nil {
		return nil
	}
	info, err := json.Marshal(report.Info)
	if err != nil {
		return fmt.Errorf("encode dataset info: %w", err)
	}
	return b.catalog.BeginBuild(ctx, catalog.Build{
		ID:             report.BuildID,
		Schema:         string(report.Schema),
		DatasetName:    report.Info.Name,
		DatasetVersion: report.Info.Version,
		Info:           info,
		OutputDir:      report.OutputDir,
		Splits:         splits,
		StartedAt:      report.StartedAt,
	})
}

// promote writes dataset_info.json into the staging directory and renames it
// to the build's output directory. Split paths are rewritten to their final
// location first.
func (b *Builder) promote(report Report, stageDir string) error {
	if !b.cfg.Build.WriteJSONL {
		return nil
	}
	for i := range report.Splits {
		if report.Splits[i].Path != "" {
			report.Splits[i].Path = filepath.Join(report.OutputDir, filepath.Base(report.Splits[i].Path))
		}
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode build report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(stageDir, infoFileName), payload, 0o644); err != nil {
		return err
	}
	if err := os.Rename(stageDir, report.OutputDir); err != nil {
		return fmt.Errorf("publish build output: %w", err)
	}
	return nil
}

func (b *Builder) lock() (func(), error) {
	if err := os.MkdirAll(b.cfg.Paths.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	fl := flock.New(filepath.Join(b.cfg.Paths.OutputDir, lockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !ok {
		return nil, ErrBuildInProgress
	}
	return func() { _ = fl.Unlock() }, nil
}

func uniqueSplits(splits []string) error {
	seen := make(map[string]struct{}, len(splits))
	for _, s := range splits {
		if s == "" {
			return errors.New("split name must not be empty")
		}
		if s != filepath.Base(s) || s == "." || s == ".." {
			return fmt.Errorf("split name %q must not contain path separators", s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("split %q requested more than once", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

func hintFor(kind string) string {
	switch kind {
	case "resolution":
		return "check network access and the checksum registry, then rerun the build"
	case "lookup":
		return "a manifest row has no matching video; set dataset.on_missing = \"skip\" to drop such rows"
	case "parse":
		return "the split manifest is malformed; check the reported line"
	case "duplicate_key":
		return "the split manifest repeats a video id"
	case "locked":
		return "wait for the running build to finish"
	default:
		return "check logs for details"
	}
}
