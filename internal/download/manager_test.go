package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"signdata/internal/assets"
	"signdata/internal/testsupport"
)

type archiveServer struct {
	*httptest.Server
	hits     atomic.Int32
	failures atomic.Int32
	status   int
	body     []byte
}

func newArchiveServer(t *testing.T, body []byte) *archiveServer {
	t.Helper()
	s := &archiveServer{body: body, status: http.StatusServiceUnavailable}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if s.failures.Load() > 0 {
			s.failures.Add(-1)
			w.WriteHeader(s.status)
			return
		}
		_, _ = w.Write(s.body)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Download.MaxAttempts = 3
	return NewManager(cfg, WithBackoff(time.Millisecond))
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestFetchDownloadsVerifiesAndExtracts(t *testing.T) {
	body := testsupport.ZipBytes(t, map[string]string{
		"health1/health1_s1_t1.mp4": "video",
		"health1/readme.txt":        "hello",
	})
	srv := newArchiveServer(t, body)
	m := newTestManager(t)
	req := assets.Request{Name: "health1", URL: srv.URL + "/health1.zip", Checksum: digest(body), Extract: true}

	res, err := m.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Archive || res.Cached || res.Path != m.ExtractedPath("health1") {
		t.Fatalf("unexpected result: %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(res.Path, "health1", "health1_s1_t1.mp4"))
	if err != nil || string(data) != "video" {
		t.Fatalf("extracted file: %q, %v", data, err)
	}
	meta, ok, err := LoadMetadata(filepath.Join(res.Path, MarkerFileName))
	if err != nil || !ok {
		t.Fatalf("marker: ok=%v err=%v", ok, err)
	}
	if meta.URL != req.URL || meta.EntryCount != 2 || !meta.Extracted {
		t.Fatalf("unexpected marker: %+v", meta)
	}

	again, err := m.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !again.Cached || again.Path != res.Path {
		t.Fatalf("expected cached result, got %+v", again)
	}
	if hits := srv.hits.Load(); hits != 1 {
		t.Fatalf("server hit %d times, want 1", hits)
	}
}

func TestFetchWithoutExtractReturnsArchive(t *testing.T) {
	body := testsupport.ZipBytes(t, map[string]string{"a.mp4": "x"})
	srv := newArchiveServer(t, body)
	m := newTestManager(t)

	res, err := m.Fetch(context.Background(), assets.Request{Name: "kep1", URL: srv.URL + "/kep1.zip"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.Archive || res.Path != m.ArchivePath("kep1") || res.Size != int64(len(body)) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, err := os.Stat(m.ExtractedPath("kep1")); !os.IsNotExist(err) {
		t.Fatalf("archive should not be extracted: %v", err)
	}
}

func TestFetchChecksumMismatchIsNotRetried(t *testing.T) {
	body := testsupport.ZipBytes(t, map[string]string{"a.mp4": "x"})
	srv := newArchiveServer(t, body)
	m := newTestManager(t)

	_, err := m.Fetch(context.Background(), assets.Request{Name: "police2", URL: srv.URL + "/police2.zip", Checksum: "abc123", Extract: true})
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	if hits := srv.hits.Load(); hits != 1 {
		t.Fatalf("server hit %d times, want 1", hits)
	}
	if _, err := os.Stat(m.ArchivePath("police2")); !os.IsNotExist(err) {
		t.Fatalf("mismatched archive must not be kept: %v", err)
	}
}

func TestFetchRetriesTransientStatus(t *testing.T) {
	body := testsupport.ZipBytes(t, map[string]string{"a.mp4": "x"})
	srv := newArchiveServer(t, body)
	srv.failures.Store(2)
	m := newTestManager(t)

	if _, err := m.Fetch(context.Background(), assets.Request{Name: "kep3", URL: srv.URL + "/kep3.zip", Extract: true}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits := srv.hits.Load(); hits != 3 {
		t.Fatalf("server hit %d times, want 3", hits)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	srv := newArchiveServer(t, nil)
	srv.status = http.StatusNotFound
	srv.failures.Store(5)
	m := newTestManager(t)

	_, err := m.Fetch(context.Background(), assets.Request{Name: "kep4", URL: srv.URL + "/kep4.zip"})
	var status *StatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if hits := srv.hits.Load(); hits != 1 {
		t.Fatalf("server hit %d times, want 1", hits)
	}
}

func TestFetchRedownloadsWhenChecksumChanges(t *testing.T) {
	first := testsupport.ZipBytes(t, map[string]string{"a.mp4": "one"})
	srv := newArchiveServer(t, first)
	m := newTestManager(t)
	url := srv.URL + "/health2.zip"

	if _, err := m.Fetch(context.Background(), assets.Request{Name: "health2", URL: url, Checksum: digest(first), Extract: true}); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	second := testsupport.ZipBytes(t, map[string]string{"a.mp4": "two"})
	srv.body = second
	res, err := m.Fetch(context.Background(), assets.Request{Name: "health2", URL: url, Checksum: digest(second), Extract: true})
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if res.Cached {
		t.Fatal("changed checksum must not be served from cache")
	}
	data, err := os.ReadFile(filepath.Join(res.Path, "a.mp4"))
	if err != nil || string(data) != "two" {
		t.Fatalf("extracted content = %q, %v", data, err)
	}
}

func TestFetchRejectsPathTraversal(t *testing.T) {
	body := testsupport.ZipBytes(t, map[string]string{"../escape.txt": "x"})
	srv := newArchiveServer(t, body)
	m := newTestManager(t)

	_, err := m.Fetch(context.Background(), assets.Request{Name: "evil", URL: srv.URL + "/evil.zip", Extract: true})
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected traversal error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.Root(), extractedDir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("escaped file written: %v", err)
	}
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	srv := newArchiveServer(t, []byte("x"))
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Fetch(ctx, assets.Request{Name: "kep5", URL: srv.URL + "/kep5.zip"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
