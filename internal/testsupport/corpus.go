package testsupport

import (
	"path/filepath"
	"testing"

	"signdata/internal/assets"
)

// Corpus is an extracted GSL layout under a temp directory: one directory per
// video and depth asset plus the GSL_split and supplementary assets.
type Corpus struct {
	Root        string
	Template    string
	descriptors []assets.Descriptor
}

// NewCorpus creates empty asset directories for scenarios x instances.
func NewCorpus(t testing.TB, instances int, scenarios ...string) *Corpus {
	t.Helper()

	c := &Corpus{Root: t.TempDir(), Template: "https://example.test/{name}.zip"}
	c.descriptors = append(c.descriptors, assets.SupplementaryDescriptors(c.Template)...)
	c.descriptors = append(c.descriptors, assets.MediaDescriptors(c.Template, scenarios, instances)...)
	for _, d := range c.descriptors {
		WriteText(t, filepath.Join(c.AssetDir(d.Name), ".keep"), "")
	}
	return c
}

// AssetDir returns the directory backing the named asset.
func (c *Corpus) AssetDir(name string) string {
	return filepath.Join(c.Root, name)
}

// Descriptors returns the descriptors the corpus was built from.
func (c *Corpus) Descriptors() []assets.Descriptor {
	return append([]assets.Descriptor(nil), c.descriptors...)
}

// AddVideo writes {videoID}.mp4 into the asset directory and its _Depth
// counterpart and returns both paths.
func (c *Corpus) AddVideo(t testing.TB, asset, videoID string) (string, string) {
	t.Helper()

	video := c.AddFile(t, asset, videoID+".mp4")
	depth := c.AddFile(t, asset+assets.DepthSuffix, videoID+".mp4")
	return video, depth
}

// AddFile writes a small file at rel inside the named asset.
func (c *Corpus) AddFile(t testing.TB, asset, rel string) string {
	t.Helper()

	path := filepath.Join(c.AssetDir(asset), rel)
	WriteFile(t, path, 16)
	return path
}

// WriteManifest stores a split manifest under GSL_split/<dir>/<file>.
func (c *Corpus) WriteManifest(t testing.TB, dir, file, content string) string {
	t.Helper()

	path := filepath.Join(c.AssetDir(assets.SplitArchiveName), dir, file)
	WriteText(t, path, content)
	return path
}

// Resolved returns the resolution table pointing at the corpus directories.
func (c *Corpus) Resolved(t testing.TB) *assets.Resolved {
	t.Helper()

	locations := make([]assets.Location, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		locations = append(locations, assets.Location{Descriptor: d, Path: c.AssetDir(d.Name)})
	}
	resolved, err := assets.NewResolved(locations...)
	if err != nil {
		t.Fatalf("build resolved table: %v", err)
	}
	return resolved
}

// Downloader returns a fake downloader answering with the corpus directories.
func (c *Corpus) Downloader() *FakeDownloader {
	fake := NewFakeDownloader()
	for _, d := range c.descriptors {
		fake.SetPath(d.Name, c.AssetDir(d.Name))
	}
	return fake
}
