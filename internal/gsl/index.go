package gsl

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"signdata/internal/assets"
	"signdata/internal/manifest"
)

// MemberSeparator joins an archive path and a member name in references to
// files that were left inside a zip archive.
const MemberSeparator = "!/"

// Index maps file names to paths inside resolved assets. Each asset is listed
// once, on first use, and the listing is shared by every generator holding
// the Index.
type Index struct {
	resolved *assets.Resolved

	mu       sync.Mutex
	listings map[string]map[string][]string
}

// NewIndex builds an index over resolved. Listing is deferred until Find.
func NewIndex(resolved *assets.Resolved) *Index {
	return &Index{
		resolved: resolved,
		listings: make(map[string]map[string][]string),
	}
}

// Find returns the single path of {videoID}.mp4 among the assets of kind
// recorded for the scenario encoded in videoID.
func (ix *Index) Find(kind assets.Kind, videoID string) (string, error) {
	filename := videoID + ".mp4"
	ref, err := manifest.ParseVideoID(videoID)
	if err != nil {
		return "", &LookupError{VideoID: videoID, Filename: filename, Kind: kind, Err: err}
	}

	candidates := ix.resolved.ForScenario(kind, ref.Scenario)
	if len(candidates) == 0 {
		return "", &LookupError{
			VideoID:  videoID,
			Filename: filename,
			Kind:     kind,
			Scenario: ref.Scenario,
			Err:      fmt.Errorf("no %s assets resolved for scenario %q", kind, ref.Scenario),
		}
	}

	var matches []string
	for _, loc := range candidates {
		listing, err := ix.listing(loc)
		if err != nil {
			return "", &LookupError{VideoID: videoID, Filename: filename, Kind: kind, Scenario: ref.Scenario, Err: err}
		}
		matches = append(matches, listing[filename]...)
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", &LookupError{VideoID: videoID, Filename: filename, Kind: kind, Scenario: ref.Scenario}
	default:
		sort.Strings(matches)
		return "", &LookupError{VideoID: videoID, Filename: filename, Kind: kind, Scenario: ref.Scenario, Matches: matches}
	}
}

func (ix *Index) listing(loc assets.Location) (map[string][]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if listing, ok := ix.listings[loc.Name]; ok {
		return listing, nil
	}
	var (
		listing map[string][]string
		err     error
	)
	if loc.Archive {
		listing, err = listArchive(loc.Path)
	} else {
		listing, err = listDir(loc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("list asset %s: %w", loc.Name, err)
	}
	ix.listings[loc.Name] = listing
	return listing, nil
}

func listDir(root string) (map[string][]string, error) {
	listing := make(map[string][]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			listing[d.Name()] = append(listing[d.Name()], p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func listArchive(archive string) (map[string][]string, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	listing := make(map[string][]string)
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(f.Name)
		listing[name] = append(listing[name], archive+MemberSeparator+f.Name)
	}
	return listing, nil
}
