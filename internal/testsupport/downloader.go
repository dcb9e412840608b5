package testsupport

import (
	"context"
	"path/filepath"
	"sync"

	"signdata/internal/assets"
)

// FakeDownloader records requests and answers them from a name -> path table.
// Names without an explicit path resolve to /fake/<name>.
type FakeDownloader struct {
	mu       sync.Mutex
	paths    map[string]string
	failures map[string]error
	requests map[string]assets.Request
	calls    int
}

// NewFakeDownloader returns an empty fake.
func NewFakeDownloader() *FakeDownloader {
	return &FakeDownloader{
		paths:    map[string]string{},
		failures: map[string]error{},
		requests: map[string]assets.Request{},
	}
}

// SetPath fixes the path returned for name.
func (f *FakeDownloader) SetPath(name, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = path
}

// Fail makes requests for name return err.
func (f *FakeDownloader) Fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = err
}

// Fetch implements assets.Downloader.
func (f *FakeDownloader) Fetch(ctx context.Context, req assets.Request) (assets.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests[req.Name] = req
	if err := ctx.Err(); err != nil {
		return assets.Result{}, err
	}
	if err := f.failures[req.Name]; err != nil {
		return assets.Result{}, err
	}
	path, ok := f.paths[req.Name]
	if !ok {
		path = filepath.Join("/fake", req.Name)
	}
	return assets.Result{Path: path, Archive: !req.Extract}, nil
}

// Request returns the last request seen for name.
func (f *FakeDownloader) Request(name string) (assets.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[name]
	return req, ok
}

// Calls reports how many fetches were made.
func (f *FakeDownloader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
