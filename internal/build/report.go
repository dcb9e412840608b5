package build

import (
	"time"

	"signdata/internal/gsl"
)

// SplitReport summarizes one generated split.
type SplitReport struct {
	Name     string        `json:"name"`
	Examples int           `json:"examples"`
	Skipped  int           `json:"skipped"`
	Path     string        `json:"path,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes a build.
type Report struct {
	BuildID   string        `json:"build_id"`
	Schema    gsl.Schema    `json:"schema"`
	Info      gsl.Info      `json:"info"`
	OutputDir string        `json:"output_dir"`
	Assets    int           `json:"assets"`
	Splits    []SplitReport `json:"splits"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Examples returns the number of examples across splits.
func (r Report) Examples() int {
	total := 0
	for _, s := range r.Splits {
		total += s.Examples
	}
	return total
}

// Skipped returns the number of skipped rows across splits.
func (r Report) Skipped() int {
	total := 0
	for _, s := range r.Splits {
		total += s.Skipped
	}
	return total
}
