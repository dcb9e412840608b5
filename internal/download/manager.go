package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"signdata/internal/assets"
	"signdata/internal/config"
	"signdata/internal/fileutil"
	"signdata/internal/logging"
	"signdata/internal/textutil"
)

const (
	archivesDir  = "archives"
	extractedDir = "extracted"
	locksDir     = "locks"

	lockRetryDelay = 250 * time.Millisecond
	defaultBackoff = time.Second
)

// Manager downloads archives into the cache directory.
type Manager struct {
	root        string
	client      *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	maxBytes    int64
	minFree     uint64
	progress    io.Writer
	logger      *slog.Logger
	statfs      statfsFunc
}

// Option customizes a Manager.
type Option func(*Manager)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		if client != nil {
			m.client = client
		}
	}
}

// WithProgress renders a progress bar per download on w.
func WithProgress(w io.Writer) Option {
	return func(m *Manager) { m.progress = w }
}

// WithBackoff sets the delay before the first retry; later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.backoff = d
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logging.NewComponentLogger(logger, "download") }
}

// NewManager builds a manager from the download and cache configuration.
func NewManager(cfg *config.Config, opts ...Option) *Manager {
	rpm := cfg.Download.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	m := &Manager{
		root:        cfg.Paths.CacheDir,
		client:      &http.Client{Timeout: time.Duration(cfg.Download.TimeoutSeconds) * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		maxAttempts: max(cfg.Download.MaxAttempts, 1),
		backoff:     defaultBackoff,
		maxBytes:    int64(cfg.Cache.MaxGiB) * 1024 * 1024 * 1024,
		minFree:     uint64(cfg.Cache.MinFreeGiB) * 1024 * 1024 * 1024,
		logger:      logging.NewComponentLogger(nil, "download"),
		statfs:      realStatfs,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the cache directory.
func (m *Manager) Root() string { return m.root }

// ArchivePath returns where the named archive is cached.
func (m *Manager) ArchivePath(name string) string {
	return filepath.Join(m.root, archivesDir, entryName(name)+".zip")
}

// ExtractedPath returns where the named archive is unpacked.
func (m *Manager) ExtractedPath(name string) string {
	return filepath.Join(m.root, extractedDir, entryName(name))
}

func (m *Manager) archiveMetadataPath(name string) string {
	return filepath.Join(m.root, archivesDir, entryName(name)+".json")
}

func entryName(name string) string {
	return textutil.SanitizeToken(name)
}

// Fetch implements assets.Downloader.
func (m *Manager) Fetch(ctx context.Context, req assets.Request) (assets.Result, error) {
	if req.Name == "" || req.URL == "" {
		return assets.Result{}, errors.New("download request needs a name and a URL")
	}
	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldAsset, req.Name))

	unlock, err := m.lock(ctx, req.Name)
	if err != nil {
		return assets.Result{}, err
	}
	defer unlock()

	if req.Extract {
		dir := m.ExtractedPath(req.Name)
		meta, ok, err := LoadMetadata(filepath.Join(dir, MarkerFileName))
		if err != nil {
			logger.Debug("ignoring unreadable extraction marker", logging.Error(err))
		}
		if ok && err == nil && meta.Extracted && meta.matches(req.URL, req.Checksum) {
			logger.Debug("extracted archive cached", logging.String("path", dir))
			return assets.Result{Path: dir, Size: meta.SizeBytes, Cached: true}, nil
		}
	}

	meta, cached, err := m.ensureArchive(ctx, req, logger)
	if err != nil {
		return assets.Result{}, err
	}
	archive := m.ArchivePath(req.Name)
	if !req.Extract {
		return assets.Result{Path: archive, Archive: true, Size: meta.SizeBytes, Cached: cached}, nil
	}

	dir, err := m.extract(req.Name, archive, meta)
	if err != nil {
		return assets.Result{}, err
	}
	logger.Info("archive extracted", logging.String("path", dir))
	return assets.Result{Path: dir, Size: meta.SizeBytes, Cached: cached}, nil
}

func (m *Manager) lock(ctx context.Context, name string) (func(), error) {
	dir := filepath.Join(m.root, locksDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(filepath.Join(dir, entryName(name)+".lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock cache entry %s: %w", name, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock cache entry %s: not acquired", name)
	}
	return func() { _ = fl.Unlock() }, nil
}

// ensureArchive returns the metadata of a cached archive matching req,
// downloading it when missing or stale.
func (m *Manager) ensureArchive(ctx context.Context, req assets.Request, logger *slog.Logger) (EntryMetadata, bool, error) {
	archive := m.ArchivePath(req.Name)
	meta, ok, err := LoadMetadata(m.archiveMetadataPath(req.Name))
	if err == nil && ok && meta.matches(req.URL, req.Checksum) {
		if info, statErr := os.Stat(archive); statErr == nil && info.Size() == meta.SizeBytes {
			logger.Debug("archive cached", logging.String("path", archive))
			return meta, true, nil
		}
	}

	var lastErr error
	delay := m.backoff
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		meta, lastErr = m.download(ctx, req, archive)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return EntryMetadata{}, false, ctx.Err()
		}
		if !retryable(lastErr) || attempt == m.maxAttempts {
			break
		}
		logging.WarnWithContext(logger, "download failed, retrying", "download_retry",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(lastErr),
			logging.String(logging.FieldErrorHint, "check network access to the archive host"),
			logging.String(logging.FieldImpact, "the build waits for the retry"),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return EntryMetadata{}, false, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	if lastErr != nil {
		return EntryMetadata{}, false, lastErr
	}
	if err := writeMetadata(m.archiveMetadataPath(req.Name), meta); err != nil {
		return EntryMetadata{}, false, err
	}
	return meta, false, nil
}

func (m *Manager) download(ctx context.Context, req assets.Request, archive string) (EntryMetadata, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return EntryMetadata{}, fmt.Errorf("rate limiter: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return EntryMetadata{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := m.client.Do(httpReq)
	if err != nil {
		return EntryMetadata{}, fmt.Errorf("download %s: %w", req.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return EntryMetadata{}, &StatusError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
		return EntryMetadata{}, fmt.Errorf("create archive dir: %w", err)
	}
	part, err := os.CreateTemp(filepath.Dir(archive), "."+filepath.Base(archive)+".*.part")
	if err != nil {
		return EntryMetadata{}, fmt.Errorf("create partial file: %w", err)
	}
	partPath := part.Name()
	keep := false
	defer func() {
		if !keep {
			_ = part.Close()
			_ = os.Remove(partPath)
		}
	}()

	hasher := sha256.New()
	sinks := []io.Writer{part, hasher}
	var bar *progressbar.ProgressBar
	if m.progress != nil {
		bar = progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(m.progress),
			progressbar.OptionSetDescription(req.Name),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		sinks = append(sinks, bar)
	}
	size, err := io.Copy(io.MultiWriter(sinks...), resp.Body)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return EntryMetadata{}, fmt.Errorf("download %s: %w", req.Name, err)
	}
	if resp.ContentLength > 0 && size != resp.ContentLength {
		return EntryMetadata{}, fmt.Errorf("download %s: short body: got %d of %d bytes", req.Name, size, resp.ContentLength)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if req.Checksum != "" && !fileutil.ChecksumEqual(sum, req.Checksum) {
		return EntryMetadata{}, &ChecksumError{Name: req.Name, Expected: req.Checksum, Actual: sum}
	}
	if err := part.Close(); err != nil {
		return EntryMetadata{}, fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(partPath, archive); err != nil {
		return EntryMetadata{}, fmt.Errorf("store archive: %w", err)
	}
	keep = true

	m.logger.Info("archive downloaded",
		logging.String(logging.FieldAsset, req.Name),
		logging.Int64("size_bytes", size),
		logging.Bool("verified", req.Checksum != ""),
	)
	return EntryMetadata{
		Name:      req.Name,
		URL:       req.URL,
		Checksum:  req.Checksum,
		SHA256:    sum,
		SizeBytes: size,
		StoredAt:  time.Now().UTC(),
	}, nil
}

func (m *Manager) extract(name, archive string, meta EntryMetadata) (string, error) {
	dir := m.ExtractedPath(name)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create extraction root: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	count, err := extractZip(archive, staging)
	if err != nil {
		_ = os.RemoveAll(staging)
		return "", err
	}
	meta.Extracted = true
	meta.EntryCount = count
	if err := writeMetadata(filepath.Join(staging, MarkerFileName), meta); err != nil {
		_ = os.RemoveAll(staging)
		return "", err
	}
	if err := os.RemoveAll(dir); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("replace extracted entry: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("store extracted entry: %w", err)
	}
	return dir, nil
}
