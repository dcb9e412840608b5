package download

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"signdata/internal/fileutil"
)

const (
	metadataVersion = 1
	// MarkerFileName is written inside every extracted cache entry.
	MarkerFileName = ".signdata.json"
)

// EntryMetadata records where a cache entry came from.
type EntryMetadata struct {
	Version    int       `json:"version"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Checksum   string    `json:"checksum,omitempty"`
	SHA256     string    `json:"sha256"`
	SizeBytes  int64     `json:"size_bytes"`
	StoredAt   time.Time `json:"stored_at"`
	Extracted  bool      `json:"extracted"`
	EntryCount int       `json:"entry_count,omitempty"`
}

// matches reports whether the entry satisfies a request for url with the
// expected checksum. An empty expectation accepts any digest.
func (m EntryMetadata) matches(url, checksum string) bool {
	if m.Version != metadataVersion || m.URL != url {
		return false
	}
	if strings.TrimSpace(checksum) == "" {
		return true
	}
	return fileutil.ChecksumEqual(m.SHA256, checksum)
}

func writeMetadata(path string, meta EntryMetadata) error {
	meta.Version = metadataVersion
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads the marker at path. The boolean is false when no marker
// exists.
func LoadMetadata(path string) (EntryMetadata, bool, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return EntryMetadata{}, false, nil
		}
		return EntryMetadata{}, false, fmt.Errorf("read cache metadata: %w", err)
	}
	var meta EntryMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return EntryMetadata{}, true, fmt.Errorf("decode cache metadata %s: %w", filepath.Base(path), err)
	}
	if meta.Version != metadataVersion {
		return EntryMetadata{}, true, fmt.Errorf("unsupported cache metadata version %d", meta.Version)
	}
	return meta, true, nil
}
