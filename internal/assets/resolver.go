package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"signdata/internal/checksums"
	"signdata/internal/logging"
)

// Request is a single fetch handed to the Downloader. An empty Checksum
// means the registry had no entry and the archive is not verified.
type Request struct {
	Name     string
	URL      string
	Checksum string
	Extract  bool
}

// Result describes where the Downloader left the archive content.
type Result struct {
	Path    string
	Archive bool
	Size    int64
	Cached  bool
}

// Downloader fetches, verifies and optionally extracts one archive. Repeated
// calls with the same URL and checksum return the cached result.
type Downloader interface {
	Fetch(ctx context.Context, req Request) (Result, error)
}

// Resolver maps descriptors to local locations through a Downloader.
type Resolver struct {
	downloader  Downloader
	registry    *checksums.Registry
	extract     bool
	concurrency int
	logger      *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithExtract controls whether media archives are unpacked. Supplementary
// archives are always extracted because the manifests are read from them.
func WithExtract(extract bool) Option {
	return func(r *Resolver) { r.extract = extract }
}

// WithConcurrency bounds the number of archives fetched at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logging.NewComponentLogger(logger, "resolver") }
}

// NewResolver builds a resolver. A nil registry disables checksum lookups.
func NewResolver(downloader Downloader, registry *checksums.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		downloader:  downloader,
		registry:    registry,
		extract:     true,
		concurrency: 1,
		logger:      logging.NewComponentLogger(nil, "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches every descriptor and returns the table keyed by descriptor
// name. The first failure cancels the remaining fetches and is returned as a
// *ResolutionError. Cancellation of ctx is returned unwrapped.
func (r *Resolver) Resolve(ctx context.Context, descriptors []Descriptor) (*Resolved, error) {
	if r.downloader == nil {
		return nil, &ResolutionError{Asset: "*", Err: errors.New("no downloader configured")}
	}
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		if _, dup := seen[d.Name]; dup {
			return nil, &ResolutionError{Asset: d.Name, URL: d.URL, Err: fmt.Errorf("duplicate descriptor name %q", d.Name)}
		}
		seen[d.Name] = struct{}{}
	}

	locations := make([]Location, len(descriptors))
	var (
		mu       sync.Mutex
		verified int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, d := range descriptors {
		g.Go(func() error {
			req := r.request(d)
			res, err := r.downloader.Fetch(gctx, req)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}
				return &ResolutionError{Asset: d.Name, URL: d.URL, Err: err}
			}
			locations[i] = Location{Descriptor: d, Path: res.Path, Archive: res.Archive}
			if req.Checksum != "" {
				mu.Lock()
				verified++
				mu.Unlock()
			}
			r.logger.Debug("asset ready",
				logging.String(logging.FieldAsset, d.Name),
				logging.String("path", res.Path),
				logging.Bool("cached", res.Cached),
				logging.Bool("verified", req.Checksum != ""),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved, err := NewResolved(locations...)
	if err != nil {
		return nil, &ResolutionError{Asset: "*", Err: err}
	}
	if unverified := len(descriptors) - verified; unverified > 0 {
		logging.WarnWithContext(r.logger, "archives resolved without checksum", "checksum_missing",
			logging.Int("unverified", unverified),
			logging.Int("total", len(descriptors)),
			logging.String(logging.FieldErrorHint, "set download.checksums_path to verify archive integrity"),
			logging.String(logging.FieldImpact, "corrupted downloads will not be detected"),
		)
	}
	r.logger.Info("assets resolved", logging.Int("count", resolved.Len()))
	return resolved, nil
}

func (r *Resolver) request(d Descriptor) Request {
	sum, _ := r.registry.Lookup(d.URL)
	return Request{
		Name:     d.Name,
		URL:      d.URL,
		Checksum: sum,
		Extract:  r.extract || d.Kind == KindSupplementary,
	}
}
