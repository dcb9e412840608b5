package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"signdata/internal/assets"
	"signdata/internal/build"
	"signdata/internal/preflight"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "build [split...]",
		Short: "Download the corpus and write dataset splits",
		Long: "Resolve every configured archive, then generate the requested splits " +
			"(all configured splits when none are given) as JSONL files and catalog rows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !skipPreflight {
				results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Offline: offline})
				if failed := preflight.Failed(results); len(failed) > 0 {
					printPreflight(cmd.ErrOrStderr(), failed)
					return fmt.Errorf("preflight failed (%d checks); run `signdata doctor` for details", len(failed))
				}
			}

			builder, release, err := ctx.newBuilder(cmd, true)
			if err != nil {
				return err
			}
			defer release()

			report, err := builder.Run(cmd.Context(), args)
			if err != nil {
				if errors.Is(err, build.ErrBuildInProgress) {
					return fmt.Errorf("another build is writing to %s", cfg.Paths.OutputDir)
				}
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			printBuildReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory, disk and network checks")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the archive host probe during preflight")
	return cmd
}

func printBuildReport(out io.Writer, report build.Report) {
	rows := make([][]string, 0, len(report.Splits))
	for _, s := range report.Splits {
		rows = append(rows, []string{
			s.Name,
			humanize.Comma(int64(s.Examples)),
			strconv.Itoa(s.Skipped),
			s.Duration.Round(time.Millisecond).String(),
			s.Path,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Split", "Examples", "Skipped", "Duration", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "Build %s completed: %s examples (%d skipped) from %d archives in %s\n",
		report.BuildID,
		humanize.Comma(int64(report.Examples())),
		report.Skipped(),
		report.Assets,
		report.Duration.Round(time.Millisecond),
	)
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Download, verify and extract every configured archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, release, err := ctx.newBuilder(cmd, false)
			if err != nil {
				return err
			}
			defer release()

			resolved, err := builder.Resolve(cmd.Context())
			if err != nil {
				return err
			}
			locations := resolved.All()
			if ctx.jsonOutput() {
				return writeJSON(cmd, locationViews(locations))
			}
			rows := make([][]string, 0, len(locations))
			for _, loc := range locations {
				form := "extracted"
				if loc.Archive {
					form = "archive"
				}
				rows = append(rows, []string{loc.Name, string(loc.Kind), loc.Scenario, form, loc.Path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Asset", "Kind", "Scenario", "Form", "Path"},
				rows,
				nil,
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved %d archives\n", len(locations))
			return nil
		},
	}
}

type locationView struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Scenario string `json:"scenario,omitempty"`
	Index    int    `json:"index,omitempty"`
	URL      string `json:"url"`
	Path     string `json:"path"`
	Archive  bool   `json:"archive"`
}

func locationViews(locations []assets.Location) []locationView {
	views := make([]locationView, 0, len(locations))
	for _, loc := range locations {
		views = append(views, locationView{
			Name:     loc.Name,
			Kind:     string(loc.Kind),
			Scenario: loc.Scenario,
			Index:    loc.Index,
			URL:      loc.URL,
			Path:     loc.Path,
			Archive:  loc.Archive,
		})
	}
	return views
}
