package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"signdata/internal/catalog"
	"signdata/internal/gsl"
	"signdata/internal/logging"
	"signdata/internal/testsupport"
)

func newBuild(id string, started time.Time) catalog.Build {
	info, _ := json.Marshal(gsl.DatasetInfo())
	return catalog.Build{
		ID:             id,
		Schema:         "rich",
		DatasetName:    "gsl",
		DatasetVersion: "2.0.0",
		Info:           info,
		OutputDir:      "/tmp/out/" + id,
		Splits:         []string{"GSL-SD-train", "GSL-SD-val"},
		StartedAt:      started,
	}
}

func richExample(key string) gsl.Example {
	return gsl.Example{
		Key:       key,
		Schema:    gsl.SchemaRich,
		ID:        key,
		Signer:    "signer1",
		Sentence:  gsl.Sentence{ID: "s1", Text: "γεια", Glosses: []string{"ΓΕΙΑ"}},
		Instance:  1,
		VideoPath: "/v/" + key + ".mp4",
		DepthPath: "/d/" + key + ".mp4",
	}
}

func TestOpenMigratesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Open(path, logging.NewNop())
	require.NoError(t, err)

	version, dirty, err := store.SchemaVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)
	require.NoError(t, store.Close())

	reopened, err := catalog.Open(path, logging.NewNop())
	require.NoError(t, err)
	defer reopened.Close()
	version, _, err = reopened.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, uint(1), version)
}

func TestBuildLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenCatalog(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.BeginBuild(ctx, newBuild("b1", started)))
	b, err := store.GetBuild(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, catalog.StatusRunning, b.Status)
	require.Equal(t, []string{"GSL-SD-train", "GSL-SD-val"}, b.Splits)
	require.True(t, b.StartedAt.Equal(started))
	require.Nil(t, b.FinishedAt)

	require.NoError(t, store.FinishBuild(ctx, "b1", 10, 2))
	b, err = store.GetBuild(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, catalog.StatusCompleted, b.Status)
	require.Equal(t, 10, b.ExampleCount)
	require.Equal(t, 2, b.SkippedCount)
	require.NotNil(t, b.FinishedAt)

	var info gsl.Info
	require.NoError(t, json.Unmarshal(b.Info, &info))
	require.Equal(t, gsl.DatasetInfo(), info)
}

func TestFailBuildRecordsKind(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenCatalog(t)
	require.NoError(t, store.BeginBuild(ctx, newBuild("b2", time.Now())))
	require.NoError(t, store.BeginBuild(ctx, newBuild("b2-other", time.Now())))
	require.NoError(t, store.InsertExamples(ctx, "b2", "GSL-SD-train", 0, []gsl.Example{richExample("health1_a")}))
	require.NoError(t, store.InsertExamples(ctx, "b2-other", "GSL-SD-train", 0, []gsl.Example{richExample("health1_a")}))
	require.NoError(t, store.FailBuild(ctx, "b2", "lookup", "video police5_s2_t1.mp4 not found"))

	b, err := store.GetBuild(ctx, "b2")
	require.NoError(t, err)
	require.Equal(t, catalog.StatusFailed, b.Status)
	require.Equal(t, "lookup", b.FailureKind)
	require.Contains(t, b.ErrorMessage, "police5_s2_t1")

	counts, err := store.SplitCounts(ctx, "b2")
	require.NoError(t, err)
	require.Empty(t, counts, "failed build must not keep examples")
	counts, err = store.SplitCounts(ctx, "b2-other")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"GSL-SD-train": 1}, counts)

	err = store.FailBuild(ctx, "missing", "lookup", "x")
	require.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestGetBuildByPrefix(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenCatalog(t)
	require.NoError(t, store.BeginBuild(ctx, newBuild("abc-111", time.Now())))
	require.NoError(t, store.BeginBuild(ctx, newBuild("abc-222", time.Now())))

	b, err := store.GetBuild(ctx, "abc-2")
	require.NoError(t, err)
	require.Equal(t, "abc-222", b.ID)

	_, err = store.GetBuild(ctx, "abc")
	require.ErrorContains(t, err, "ambiguous")

	_, err = store.GetBuild(ctx, "zzz")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestListBuildsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenCatalog(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.BeginBuild(ctx, newBuild(id, base.Add(time.Duration(i)*time.Hour))))
	}

	builds, err := store.ListBuilds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, builds, 3)
	require.Equal(t, "new", builds[0].ID)
	require.Equal(t, "old", builds[2].ID)

	limited, err := store.ListBuilds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestInsertExamplesRejectsDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenCatalog(t)
	require.NoError(t, store.BeginBuild(ctx, newBuild("b3", time.Now())))

	batch := []gsl.Example{richExample("health1_a"), richExample("health1_b")}
	require.NoError(t, store.InsertExamples(ctx, "b3", "GSL-SD-train", 0, batch))
	require.NoError(t, store.InsertExamples(ctx, "b3", "GSL-SD-val", 0, []gsl.Example{richExample("health1_a")}))

	err := store.InsertExamples(ctx, "b3", "GSL-SD-train", 2, []gsl.Example{richExample("health1_c"), richExample("health1_a")})
	require.Error(t, err)

	counts, err := store.SplitCounts(ctx, "b3")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"GSL-SD-train": 2, "GSL-SD-val": 1}, counts)
}

func TestExamplesPagingAndLookup(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenCatalog(t)
	require.NoError(t, store.BeginBuild(ctx, newBuild("b4", time.Now())))
	batch := []gsl.Example{richExample("k0"), richExample("k1"), richExample("k2")}
	require.NoError(t, store.InsertExamples(ctx, "b4", "GSL-SD-test", 0, batch))

	page, err := store.Examples(ctx, "b4", "GSL-SD-test", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "k1", page[0].Key)
	require.Equal(t, 2, page[1].Ordinal)

	var record map[string]any
	require.NoError(t, json.Unmarshal(page[0].Record, &record))
	require.Equal(t, "k1", record["id"])
	require.Equal(t, "/d/k1.mp4", record["depth_video"])

	found, err := store.FindExample(ctx, "b4", "k2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "GSL-SD-test", found[0].Split)
}

func TestDeleteBuildCascades(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenCatalog(t)
	require.NoError(t, store.BeginBuild(ctx, newBuild("b5", time.Now())))
	require.NoError(t, store.InsertExamples(ctx, "b5", "GSL-SD-train", 0, []gsl.Example{richExample("k0")}))

	require.NoError(t, store.DeleteBuild(ctx, "b5"))
	counts, err := store.SplitCounts(ctx, "b5")
	require.NoError(t, err)
	require.Empty(t, counts)
	require.ErrorIs(t, store.DeleteBuild(ctx, "b5"), catalog.ErrNotFound)
}
