package checksums

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Registry maps archive URLs to their expected checksum.
type Registry struct {
	entries map[string]string
}

// New builds a registry from an in-memory mapping.
func New(entries map[string]string) *Registry {
	r := &Registry{entries: make(map[string]string, len(entries))}
	for url, sum := range entries {
		r.entries[strings.TrimSpace(url)] = strings.TrimSpace(sum)
	}
	return r
}

// Empty returns a registry without entries; every lookup misses.
func Empty() *Registry {
	return New(nil)
}

// Load reads the registry file at path. An empty path yields an empty
// registry. When only is non-empty, entries whose URL is not listed are
// dropped.
func Load(path string, only ...string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Empty(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checksum registry %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("open checksum registry: %w", err)
	}
	defer f.Close()
	return Parse(f, only...)
}

// Parse reads registry lines from r.
func Parse(r io.Reader, only ...string) (*Registry, error) {
	var wanted map[string]struct{}
	if len(only) > 0 {
		wanted = make(map[string]struct{}, len(only))
		for _, url := range only {
			wanted[url] = struct{}{}
		}
	}

	entries := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 3 {
			continue
		}
		url, sum := strings.TrimSpace(cols[0]), strings.TrimSpace(cols[1])
		if url == "" || sum == "" {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[url]; !ok {
				continue
			}
		}
		entries[url] = sum
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checksum registry: %w", err)
	}
	return &Registry{entries: entries}, nil
}

// Lookup returns the expected checksum for url and whether one is registered.
func (r *Registry) Lookup(url string) (string, bool) {
	if r == nil {
		return "", false
	}
	sum, ok := r.entries[strings.TrimSpace(url)]
	return sum, ok
}

// Len reports the number of registered URLs.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
