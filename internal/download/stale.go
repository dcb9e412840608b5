package download

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"signdata/internal/logging"
)

// CleanStaleResult contains the outcome of a leftover cleanup.
type CleanStaleResult struct {
	Removed []string       `json:"removed"`
	Errors  []CleanupError `json:"errors,omitempty"`
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// CleanStale removes partial downloads and extraction staging directories
// older than maxAge. Interrupted runs leave these behind; younger ones may
// belong to a download in progress and are kept.
func (m *Manager) CleanStale(ctx context.Context, maxAge time.Duration) CleanStaleResult {
	result := CleanStaleResult{}
	cutoff := time.Now().Add(-maxAge)

	for _, sub := range []struct {
		dir    string
		suffix string
	}{
		{archivesDir, ".part"},
		{extractedDir, ".tmp"},
	} {
		dir := filepath.Join(m.root, sub.dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err.Error()})
			}
			continue
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return result
			}
			name := entry.Name()
			if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, sub.suffix) {
				continue
			}
			path := filepath.Join(dir, name)
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err.Error()})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err.Error()})
				logging.WarnWithContext(m.logger, "failed to remove stale download leftover", "cache_cleanup_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check cache_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
				continue
			}
			result.Removed = append(result.Removed, path)
			m.logger.InfoContext(ctx, "removed stale download leftover",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "cache_cleanup"),
			)
		}
	}
	return result
}
