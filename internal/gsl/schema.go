package gsl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"signdata/internal/assets"
	"signdata/internal/manifest"
)

// Schema selects the manifest layout and the record shape.
type Schema string

const (
	// SchemaRich reads GSL_continuous CSV manifests and keys records by video id.
	SchemaRich Schema = "rich"
	// SchemaSimple reads video_id|gloss manifests and keys records by row ordinal.
	SchemaSimple Schema = "simple"
)

// ParseSchema validates a schema name.
func ParseSchema(name string) (Schema, error) {
	switch s := Schema(strings.ToLower(strings.TrimSpace(name))); s {
	case SchemaRich, SchemaSimple:
		return s, nil
	default:
		return "", fmt.Errorf("unknown schema %q", name)
	}
}

// Format returns the manifest format read for the schema.
func (s Schema) Format() manifest.Format {
	if s == SchemaSimple {
		return manifest.FormatPipe
	}
	return manifest.FormatCSV
}

// ManifestExt returns the file extension of split manifests.
func (s Schema) ManifestExt() string {
	if s == SchemaSimple {
		return ".txt"
	}
	return ".csv"
}

// ManifestPath locates the manifest of split inside the extracted GSL_split
// asset. Archives that wrap their content in a top-level GSL_split folder are
// accepted as well.
func ManifestPath(resolved *assets.Resolved, schema Schema, manifestDir, split string) (string, error) {
	loc, ok := resolved.Lookup(assets.SplitArchiveName)
	if !ok {
		return "", fmt.Errorf("asset %s was not resolved", assets.SplitArchiveName)
	}
	if loc.Archive {
		return "", fmt.Errorf("asset %s must be extracted to read manifests", assets.SplitArchiveName)
	}
	file := split + schema.ManifestExt()
	candidates := []string{
		filepath.Join(loc.Path, manifestDir, file),
		filepath.Join(loc.Path, assets.SplitArchiveName, manifestDir, file),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat manifest: %w", err)
		}
	}
	return "", fmt.Errorf("manifest for split %s not found under %s: %w", split, loc.Path, fs.ErrNotExist)
}
