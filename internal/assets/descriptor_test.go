package assets_test

import (
	"testing"

	"signdata/internal/assets"
)

const template = "https://zenodo.org/records/4756317/files/{name}.zip?download=1"

func TestMediaDescriptorsCrossesScenariosAndIndices(t *testing.T) {
	descs := assets.MediaDescriptors(template, []string{"health", "kep", "police"}, 5)
	if len(descs) != 30 {
		t.Fatalf("len = %d, want 30", len(descs))
	}
	first, last := descs[0], descs[len(descs)-1]
	if first.Name != "health1" || first.Kind != assets.KindVideo || first.Scenario != "health" || first.Index != 1 {
		t.Fatalf("unexpected first descriptor: %+v", first)
	}
	if first.URL != "https://zenodo.org/records/4756317/files/health1.zip?download=1" {
		t.Fatalf("unexpected url: %s", first.URL)
	}
	if last.Name != "police5_Depth" || last.Kind != assets.KindDepth || last.Scenario != "police" || last.Index != 5 {
		t.Fatalf("unexpected last descriptor: %+v", last)
	}
	if last.URL != "https://zenodo.org/records/4756317/files/police5_Depth.zip?download=1" {
		t.Fatalf("unexpected depth url: %s", last.URL)
	}

	names := map[string]bool{}
	for _, d := range descs {
		if names[d.Name] {
			t.Fatalf("duplicate descriptor %s", d.Name)
		}
		names[d.Name] = true
	}
}

func TestSupplementaryDescriptors(t *testing.T) {
	descs := assets.SupplementaryDescriptors(template)
	if len(descs) != 2 {
		t.Fatalf("len = %d, want 2", len(descs))
	}
	if descs[1].Name != assets.SplitArchiveName || descs[1].URL != "https://zenodo.org/records/4756317/files/GSL_split.zip?download=1" {
		t.Fatalf("unexpected split descriptor: %+v", descs[1])
	}
	for _, d := range descs {
		if d.Kind != assets.KindSupplementary {
			t.Fatalf("unexpected kind for %s: %s", d.Name, d.Kind)
		}
	}
}

func TestResolvedLookupHelpers(t *testing.T) {
	descs := assets.MediaDescriptors(template, []string{"health", "kep"}, 2)
	locs := make([]assets.Location, 0, len(descs))
	for _, d := range descs {
		locs = append(locs, assets.Location{Descriptor: d, Path: "/data/" + d.Name})
	}
	resolved, err := assets.NewResolved(locs...)
	if err != nil {
		t.Fatalf("NewResolved: %v", err)
	}
	if resolved.Len() != 8 {
		t.Fatalf("Len = %d, want 8", resolved.Len())
	}
	if got := resolved.ForScenario(assets.KindDepth, "kep"); len(got) != 2 || got[0].Name != "kep1_Depth" {
		t.Fatalf("unexpected kep depth assets: %+v", got)
	}
	if loc, ok := resolved.Lookup("health2"); !ok || loc.Path != "/data/health2" {
		t.Fatalf("Lookup health2 = %+v, %v", loc, ok)
	}
	if _, err := assets.NewResolved(locs[0], locs[0]); err == nil {
		t.Fatal("expected duplicate name error")
	}

	merged, err := assets.Merge(resolved, mustResolved(t, assets.Location{Descriptor: assets.Descriptor{Name: "GSL_split", Kind: assets.KindSupplementary}}))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Len() != 9 {
		t.Fatalf("merged Len = %d, want 9", merged.Len())
	}
}

func mustResolved(t *testing.T, locs ...assets.Location) *assets.Resolved {
	t.Helper()
	r, err := assets.NewResolved(locs...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
