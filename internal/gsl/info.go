package gsl

// Info is the static description of the published corpus.
type Info struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	ReleaseNotes  string `json:"release_notes"`
	Homepage      string `json:"homepage"`
	FrameWidth    int    `json:"frame_width"`
	FrameHeight   int    `json:"frame_height"`
	DepthChannels int    `json:"depth_channels"`
}

// DatasetInfo returns the corpus metadata recorded with every build.
func DatasetInfo() Info {
	return Info{
		Name:          "gsl",
		Version:       "2.0.0",
		ReleaseNotes:  "v2 public release",
		Homepage:      "https://vcl.iti.gr/dataset/gsl/",
		FrameWidth:    848,
		FrameHeight:   480,
		DepthChannels: 1,
	}
}

// LicenseNotice is logged once per build.
const LicenseNotice = "The GSL corpus is distributed by its authors under their own terms. " +
	"Check the license at https://vcl.iti.gr/dataset/gsl/ before using or redistributing the built dataset."
