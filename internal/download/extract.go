package download

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractError reports a corrupt or unsafe archive. It is never retried.
type ExtractError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
	}
	return fmt.Sprintf("extract %s: entry %s: %v", e.Archive, e.Entry, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// extractZip unpacks archive into dest and returns the number of files
// written. Entries that would land outside dest are rejected.
func extractZip(archive, dest string) (int, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return 0, &ExtractError{Archive: archive, Err: err}
	}
	defer reader.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("create extraction dir: %w", err)
	}

	files := 0
	for _, f := range reader.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return files, &ExtractError{Archive: archive, Entry: f.Name, Err: fmt.Errorf("path escapes extraction dir")}
		}
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("create %s: %w", target, err)
			}
		case mode.IsRegular():
			if err := extractFile(f, target); err != nil {
				return files, &ExtractError{Archive: archive, Entry: f.Name, Err: err}
			}
			files++
		default:
			// Links and devices are not part of the corpus.
		}
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
