package assets

import (
	"fmt"
	"strings"
)

// Kind classifies an archive by the content it carries.
type Kind string

const (
	KindVideo         Kind = "video"
	KindDepth         Kind = "depth"
	KindSupplementary Kind = "supplementary"
)

const (
	// DepthSuffix is appended to a video archive name to form its depth archive name.
	DepthSuffix = "_Depth"
	// SplitArchiveName is the archive holding the split manifests.
	SplitArchiveName = "GSL_split"
	// SupplementaryName is the archive with the corpus supplementary material.
	SupplementaryName = "supplementary"
	// NamePlaceholder is replaced by the asset name in URL templates.
	NamePlaceholder = "{name}"
)

// Descriptor identifies one downloadable archive.
type Descriptor struct {
	Name     string
	Scenario string
	Index    int
	Kind     Kind
	URL      string
}

// URLFor expands template for the named archive.
func URLFor(template, name string) string {
	return strings.ReplaceAll(template, NamePlaceholder, name)
}

// MediaDescriptors returns the video archives for every scenario and instance
// index (1-based), followed by the matching depth archives.
func MediaDescriptors(template string, scenarios []string, instances int) []Descriptor {
	videos := make([]Descriptor, 0, len(scenarios)*instances)
	for _, scenario := range scenarios {
		for i := 1; i <= instances; i++ {
			name := fmt.Sprintf("%s%d", scenario, i)
			videos = append(videos, Descriptor{
				Name:     name,
				Scenario: scenario,
				Index:    i,
				Kind:     KindVideo,
				URL:      URLFor(template, name),
			})
		}
	}
	out := make([]Descriptor, 0, 2*len(videos))
	out = append(out, videos...)
	for _, v := range videos {
		depth := v
		depth.Name = v.Name + DepthSuffix
		depth.Kind = KindDepth
		depth.URL = URLFor(template, depth.Name)
		out = append(out, depth)
	}
	return out
}

// SupplementaryDescriptors returns the supplementary and split-manifest archives.
func SupplementaryDescriptors(template string) []Descriptor {
	return []Descriptor{
		{Name: SupplementaryName, Kind: KindSupplementary, URL: URLFor(template, SupplementaryName)},
		{Name: SplitArchiveName, Kind: KindSupplementary, URL: URLFor(template, SplitArchiveName)},
	}
}

// URLs lists the URLs of descriptors in order.
func URLs(descriptors []Descriptor) []string {
	urls := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		urls = append(urls, d.URL)
	}
	return urls
}
