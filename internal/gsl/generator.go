package gsl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"signdata/internal/assets"
	"signdata/internal/logging"
	"signdata/internal/manifest"
	"signdata/internal/textutil"
)

// MissingPolicy decides what happens to rows whose media cannot be found.
type MissingPolicy string

const (
	// MissingFail stops generation with the *LookupError.
	MissingFail MissingPolicy = "fail"
	// MissingSkip logs a warning, counts the row as skipped and moves on.
	MissingSkip MissingPolicy = "skip"
)

// Options configures a Generator.
type Options struct {
	Split     string
	Schema    Schema
	OnMissing MissingPolicy

	// NormalizeText rewrites translation, annotation and gloss to NFC before
	// glosses are split. Off by default so records keep manifest bytes.
	NormalizeText bool
	Logger        *slog.Logger
}

// Generator produces the examples of one split.
type Generator struct {
	manifestPath string
	index        *Index
	split        string
	schema       Schema
	onMissing    MissingPolicy
	normalize    bool
	logger       *slog.Logger
}

// NewGenerator returns a generator reading manifestPath and resolving media
// through index.
func NewGenerator(manifestPath string, index *Index, opts Options) *Generator {
	schema := opts.Schema
	if schema == "" {
		schema = SchemaRich
	}
	policy := opts.OnMissing
	if policy == "" {
		policy = MissingFail
	}
	return &Generator{
		manifestPath: manifestPath,
		index:        index,
		split:        opts.Split,
		schema:       schema,
		onMissing:    policy,
		normalize:    opts.NormalizeText,
		logger:       logging.NewComponentLogger(opts.Logger, "generator"),
	}
}

// Split returns the split name.
func (g *Generator) Split() string { return g.split }

// Examples starts a new pass over the manifest.
func (g *Generator) Examples(ctx context.Context) *Iterator {
	return &Iterator{
		ctx:    ctx,
		g:      g,
		logger: logging.WithContext(ctx, g.logger).With(logging.String(logging.FieldSplit, g.split)),
		keys:   make(map[string]int),
		ids:    make(map[string]int),
	}
}

// Iterator pulls examples one at a time. It is not safe for concurrent use.
//
//	it := gen.Examples(ctx)
//	defer it.Close()
//	for it.Next() {
//		ex := it.Example()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	ctx    context.Context
	g      *Generator
	logger *slog.Logger

	src     manifest.Source
	ordinal int
	keys    map[string]int
	ids     map[string]int
	skipped int

	current Example
	err     error
	done    bool
}

// Next advances to the next example. It returns false when the manifest is
// exhausted or an error occurred; Err tells the two apart.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.src == nil {
		src, err := manifest.Open(it.g.manifestPath, it.g.schema.Format())
		if err != nil {
			return it.fail(err)
		}
		it.src = src
	}

	for {
		if err := it.ctx.Err(); err != nil {
			return it.fail(err)
		}
		row, err := it.src.Next()
		if errors.Is(err, io.EOF) {
			it.done = true
			it.closeSource()
			return false
		}
		if err != nil {
			return it.fail(fmt.Errorf("split %s: %w", it.g.split, err))
		}

		key := row.VideoID
		if it.g.schema == SchemaSimple {
			key = strconv.Itoa(it.ordinal)
		}
		it.ordinal++

		if first, dup := it.ids[row.VideoID]; dup {
			return it.fail(&DuplicateKeyError{Split: it.g.split, Key: key, VideoID: row.VideoID, FirstLine: first, Line: row.Line})
		}
		if first, dup := it.keys[key]; dup {
			return it.fail(&DuplicateKeyError{Split: it.g.split, Key: key, VideoID: row.VideoID, FirstLine: first, Line: row.Line})
		}
		it.ids[row.VideoID] = row.Line
		it.keys[key] = row.Line

		example, err := it.assemble(key, row)
		if err != nil {
			var lookupErr *LookupError
			if it.g.onMissing == MissingSkip && errors.As(err, &lookupErr) {
				it.skipped++
				logging.WarnWithContext(it.logger, "manifest row skipped", "media_missing",
					logging.String("video_id", row.VideoID),
					logging.Int("line", row.Line),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that every video and depth archive was downloaded completely"),
					logging.String(logging.FieldImpact, "the row is missing from the split"),
				)
				continue
			}
			return it.fail(err)
		}
		it.current = example
		return true
	}
}

func (it *Iterator) assemble(key string, row manifest.Row) (Example, error) {
	video, err := it.g.index.Find(assets.KindVideo, row.VideoID)
	if err != nil {
		return Example{}, err
	}
	depth, err := it.g.index.Find(assets.KindDepth, row.VideoID)
	if err != nil {
		return Example{}, err
	}

	if it.g.normalize {
		row.Translation = textutil.Normalize(row.Translation)
		row.Annotation = textutil.Normalize(row.Annotation)
		row.Gloss = textutil.Normalize(row.Gloss)
	}

	example := Example{
		Key:       key,
		Schema:    it.g.schema,
		Line:      row.Line,
		ID:        row.VideoID,
		VideoPath: video,
		DepthPath: depth,
	}
	if it.g.schema == SchemaSimple {
		example.Gloss = row.Gloss
		return example, nil
	}
	example.Signer = row.Signer
	example.Instance = row.Instance
	example.Sentence = Sentence{
		ID:      row.SentenceID,
		Text:    row.Translation,
		Glosses: row.Glosses(),
	}
	return example, nil
}

func (it *Iterator) fail(err error) bool {
	it.err = err
	it.done = true
	it.current = Example{}
	it.closeSource()
	return false
}

func (it *Iterator) closeSource() {
	if it.src != nil {
		_ = it.src.Close()
		it.src = nil
	}
}

// Example returns the example produced by the last successful Next.
func (it *Iterator) Example() Example { return it.current }

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Skipped reports how many rows were dropped under MissingSkip.
func (it *Iterator) Skipped() int { return it.skipped }

// Close releases the manifest. It is safe to call more than once.
func (it *Iterator) Close() error {
	it.done = true
	it.closeSource()
	return nil
}

// Collect drains a fresh iterator into a slice, stopping after limit
// examples when limit is positive. The second result counts skipped rows.
func (g *Generator) Collect(ctx context.Context, limit int) ([]Example, int, error) {
	it := g.Examples(ctx)
	defer it.Close()

	var out []Example
	for (limit <= 0 || len(out) < limit) && it.Next() {
		out = append(out, it.Example())
	}
	return out, it.Skipped(), it.Err()
}
