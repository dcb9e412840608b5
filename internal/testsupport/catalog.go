package testsupport

import (
	"path/filepath"
	"testing"

	"signdata/internal/catalog"
	"signdata/internal/logging"
)

// MustOpenCatalog opens a catalog in a temp directory and closes it when the
// test ends.
func MustOpenCatalog(t testing.TB) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
