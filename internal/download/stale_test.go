package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"signdata/internal/testsupport"
)

func TestCleanStaleRemovesOldLeftovers(t *testing.T) {
	m := newTestManager(t)
	archives := filepath.Join(m.Root(), archivesDir)
	extracted := filepath.Join(m.Root(), extractedDir)

	oldPart := filepath.Join(archives, ".health1.zip.123.part")
	freshPart := filepath.Join(archives, ".kep1.zip.456.part")
	oldStaging := filepath.Join(extracted, ".health1.789.tmp")
	keptArchive := filepath.Join(archives, "health1.zip")
	testsupport.WriteFile(t, oldPart, 4)
	testsupport.WriteFile(t, freshPart, 4)
	testsupport.WriteFile(t, filepath.Join(oldStaging, "clip.mp4"), 4)
	testsupport.WriteFile(t, keptArchive, 4)

	stamp := time.Now().Add(-2 * time.Hour)
	for _, p := range []string{oldPart, oldStaging, keptArchive} {
		if err := os.Chtimes(p, stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}

	result := m.CleanStale(context.Background(), time.Hour)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removals, got %v", result.Removed)
	}
	for _, p := range []string{oldPart, oldStaging} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed: %v", p, err)
		}
	}
	for _, p := range []string{freshPart, keptArchive} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
}

func TestCleanStaleMissingCache(t *testing.T) {
	m := newTestManager(t)
	result := m.CleanStale(context.Background(), time.Hour)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
