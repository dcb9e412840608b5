package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"signdata/internal/fileutil"
	"signdata/internal/logging"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Stats describes current cache usage.
type Stats struct {
	Entries        int            `json:"entries"`
	TotalBytes     int64          `json:"total_bytes"`
	MaxBytes       int64          `json:"max_bytes"`
	FreeBytes      uint64         `json:"free_bytes"`
	TotalFSBytes   uint64         `json:"total_fs_bytes"`
	MinFreeBytes   uint64         `json:"min_free_bytes"`
	EntrySummaries []EntrySummary `json:"entry_summaries"`
}

// EntrySummary describes one cached archive and its extraction.
type EntrySummary struct {
	Name           string    `json:"name"`
	URL            string    `json:"url,omitempty"`
	Verified       bool      `json:"verified"`
	ArchiveBytes   int64     `json:"archive_bytes"`
	ExtractedBytes int64     `json:"extracted_bytes"`
	ModifiedAt     time.Time `json:"modified_at"`
}

// SizeBytes is the disk usage of the entry.
func (e EntrySummary) SizeBytes() int64 { return e.ArchiveBytes + e.ExtractedBytes }

// Stats returns the cache entries, newest first, with filesystem usage.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	entries, total, err := m.scan(ctx)
	if err != nil {
		return Stats{}, err
	}
	totalFS, freeFS, err := m.statfs(m.statRoot())
	if err != nil {
		return Stats{}, fmt.Errorf("statfs %s: %w", m.root, err)
	}
	summaries := make([]EntrySummary, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		summaries = append(summaries, entries[i])
	}
	return Stats{
		Entries:        len(entries),
		TotalBytes:     total,
		MaxBytes:       m.maxBytes,
		FreeBytes:      freeFS,
		TotalFSBytes:   totalFS,
		MinFreeBytes:   m.minFree,
		EntrySummaries: summaries,
	}, nil
}

// PruneResult lists the entries removed by Prune.
type PruneResult struct {
	Removed    []string `json:"removed"`
	FreedBytes int64    `json:"freed_bytes"`
}

// Prune removes the oldest entries until the cache fits max_gib and the
// filesystem keeps min_free_gib available. A max_gib of zero disables the
// size budget. Entries named in keep are never
// removed.
func (m *Manager) Prune(ctx context.Context, keep ...string) (PruneResult, error) {
	var result PruneResult
	entries, total, err := m.scan(ctx)
	if err != nil {
		return result, err
	}
	protected := make(map[string]bool, len(keep))
	for _, name := range keep {
		protected[entryName(name)] = true
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		freeOK, err := m.freeSpaceOK()
		if err != nil {
			return result, err
		}
		if m.withinBudget(total) && freeOK {
			break
		}
		if protected[entry.Name] {
			continue
		}
		if err := m.remove(entry.Name); err != nil {
			return result, err
		}
		m.logger.InfoContext(ctx, "pruned cache entry",
			logging.String(logging.FieldAsset, entry.Name),
			logging.Int64("entry_size_bytes", entry.SizeBytes()),
		)
		total -= entry.SizeBytes()
		result.Removed = append(result.Removed, entry.Name)
		result.FreedBytes += entry.SizeBytes()
	}
	if !m.withinBudget(total) {
		return result, fmt.Errorf("cache still holds %d bytes over the %d byte budget after pruning", total-m.maxBytes, m.maxBytes)
	}
	return result, nil
}

// withinBudget reports whether total fits max_gib. A zero budget is unlimited.
func (m *Manager) withinBudget(total int64) bool {
	return m.maxBytes <= 0 || total <= m.maxBytes
}

func (m *Manager) remove(name string) error {
	paths := []string{
		m.ExtractedPath(name),
		m.ArchivePath(name),
		m.archiveMetadataPath(name),
	}
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// scan returns cache entries sorted oldest first.
func (m *Manager) scan(ctx context.Context) ([]EntrySummary, int64, error) {
	byName := map[string]*EntrySummary{}
	get := func(name string) *EntrySummary {
		entry, ok := byName[name]
		if !ok {
			entry = &EntrySummary{Name: name}
			byName[name] = entry
		}
		return entry
	}

	archives, err := os.ReadDir(filepath.Join(m.root, archivesDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("list archives: %w", err)
	}
	for _, de := range archives {
		name, ok := strings.CutSuffix(de.Name(), ".zip")
		if !ok || de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entry := get(name)
		entry.ArchiveBytes = info.Size()
		if info.ModTime().After(entry.ModifiedAt) {
			entry.ModifiedAt = info.ModTime()
		}
		if meta, ok, err := LoadMetadata(m.archiveMetadataPath(name)); err == nil && ok {
			entry.URL = meta.URL
			entry.Verified = meta.Checksum != ""
		}
	}

	extracted, err := os.ReadDir(filepath.Join(m.root, extractedDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("list extracted entries: %w", err)
	}
	for _, de := range extracted {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		path := filepath.Join(m.root, extractedDir, de.Name())
		size, err := fileutil.DirSize(path)
		if err != nil {
			logging.WarnWithContext(m.logger, "skipping unreadable cache entry", "cache_entry_skipped",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect cache directory permissions or remove the corrupted entry"),
				logging.String(logging.FieldImpact, "entry excluded from stats and pruning"),
			)
			continue
		}
		entry := get(de.Name())
		entry.ExtractedBytes = size
		if info, err := de.Info(); err == nil && info.ModTime().After(entry.ModifiedAt) {
			entry.ModifiedAt = info.ModTime()
		}
		if entry.URL == "" {
			if meta, ok, err := LoadMetadata(filepath.Join(path, MarkerFileName)); err == nil && ok {
				entry.URL = meta.URL
				entry.Verified = meta.Checksum != ""
			}
		}
	}

	entries := make([]EntrySummary, 0, len(byName))
	var total int64
	for _, entry := range byName {
		entries = append(entries, *entry)
		total += entry.SizeBytes()
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ModifiedAt.Equal(entries[j].ModifiedAt) {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ModifiedAt.Before(entries[j].ModifiedAt)
	})
	if len(entries) == 0 {
		m.logger.DebugContext(ctx, "download cache empty")
	}
	return entries, total, nil
}

func (m *Manager) freeSpaceOK() (bool, error) {
	if m.minFree == 0 {
		return true, nil
	}
	_, free, err := m.statfs(m.statRoot())
	if err != nil {
		return false, fmt.Errorf("statfs %s: %w", m.root, err)
	}
	return free >= m.minFree, nil
}

// statRoot is the nearest existing ancestor of the cache root.
func (m *Manager) statRoot() string {
	dir := m.root
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// VerifyResult reports the integrity of one cached archive.
type VerifyResult struct {
	Name     string `json:"name"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
}

// Verify rehashes every cached archive and compares the digest with the one
// recorded when it was downloaded. Extracted-only entries have nothing to
// hash and are reported as such.
func (m *Manager) Verify(ctx context.Context) ([]VerifyResult, error) {
	entries, _, err := m.scan(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]VerifyResult, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := VerifyResult{Name: entry.Name}
		if entry.ArchiveBytes == 0 {
			res.OK = true
			res.Detail = "archive not kept"
			results = append(results, res)
			continue
		}
		meta, ok, err := LoadMetadata(m.archiveMetadataPath(entry.Name))
		switch {
		case err != nil:
			res.Detail = err.Error()
		case !ok:
			res.Detail = "no metadata"
		default:
			res.Expected = meta.SHA256
			sum, _, err := fileutil.SHA256File(m.ArchivePath(entry.Name))
			if err != nil {
				res.Detail = err.Error()
				break
			}
			res.Actual = sum
			res.OK = fileutil.ChecksumEqual(sum, meta.SHA256)
			if !res.OK {
				res.Detail = "digest changed since download"
			}
		}
		if !res.OK {
			logging.WarnWithContext(m.logger, "cache entry failed verification", "cache_verify_failed",
				logging.String(logging.FieldAsset, entry.Name),
				logging.String("detail", res.Detail),
				logging.String(logging.FieldErrorHint, "run signdata cache prune or delete the entry to force a fresh download"),
			)
		}
		results = append(results, res)
	}
	return results, nil
}
