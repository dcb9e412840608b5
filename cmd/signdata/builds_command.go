package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"signdata/internal/catalog"
	"signdata/internal/gsl"
)

const stampLayout = "2006-01-02 15:04"

func newBuildsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "builds",
		Short: "List recorded builds, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			builds, err := store.ListBuilds(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, builds)
			}
			printBuilds(cmd.OutOrStdout(), builds)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum builds to list (0 for all)")
	cmd.AddCommand(newBuildsRemoveCommand(ctx))
	return cmd
}

func printBuilds(out io.Writer, builds []catalog.Build) {
	if len(builds) == 0 {
		fmt.Fprintln(out, "No builds recorded")
		return
	}
	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		rows = append(rows, []string{
			shortID(b.ID),
			string(b.Status),
			b.Schema,
			strings.Join(b.Splits, ","),
			humanize.Comma(int64(b.ExampleCount)),
			b.StartedAt.Local().Format(stampLayout),
			humanize.Time(b.StartedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Status", "Schema", "Splits", "Examples", "Started", "Age"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func newBuildsRemoveCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "rm <build-id>",
		Short: "Forget a build in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			b, err := store.GetBuild(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if b.Status == catalog.StatusRunning {
				return fmt.Errorf("build %s is still running", shortID(b.ID))
			}
			if err := store.DeleteBuild(cmd.Context(), b.ID); err != nil {
				return err
			}
			if purge && b.OutputDir != "" {
				if err := os.RemoveAll(b.OutputDir); err != nil {
					return fmt.Errorf("remove build output: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed build %s\n", b.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete the build's output directory")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var split string
	var videoID string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "show <build-id>",
		Short: "Show a recorded build and its examples",
		Long: "Show a build by id or unique id prefix. With --split, list the stored " +
			"examples of that split. With --video-id, look up one video across splits.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			b, err := store.GetBuild(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			counts, err := store.SplitCounts(cmd.Context(), b.ID)
			if err != nil {
				return err
			}

			var examples []catalog.StoredExample
			switch {
			case videoID != "":
				examples, err = store.FindExample(cmd.Context(), b.ID, videoID)
			case split != "":
				examples, err = store.Examples(cmd.Context(), b.ID, split, limit, offset)
			}
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, buildView{Build: b, SplitCounts: counts, Examples: examples})
			}
			out := cmd.OutOrStdout()
			printBuildDetails(out, b, counts)
			if videoID != "" || split != "" {
				fmt.Fprintln(out)
				printStoredExamples(out, examples)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&split, "split", "", "List examples of this split")
	cmd.Flags().StringVar(&videoID, "video-id", "", "Find the examples of one video id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum examples to list (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many examples")
	return cmd
}

type buildView struct {
	Build       *catalog.Build          `json:"build"`
	SplitCounts map[string]int          `json:"split_counts"`
	Examples    []catalog.StoredExample `json:"examples,omitempty"`
}

func printBuildDetails(out io.Writer, b *catalog.Build, counts map[string]int) {
	pairs := [][2]string{
		{"Build", b.ID},
		{"Status", string(b.Status)},
		{"Dataset", fmt.Sprintf("%s %s", b.DatasetName, b.DatasetVersion)},
		{"Schema", b.Schema},
		{"Started", fmt.Sprintf("%s (%s)", b.StartedAt.Local().Format(stampLayout), humanize.Time(b.StartedAt))},
	}
	if b.FinishedAt != nil {
		pairs = append(pairs, [2]string{"Duration", b.Duration().Round(time.Second).String()})
	}
	pairs = append(pairs,
		[2]string{"Examples", humanize.Comma(int64(b.ExampleCount))},
		[2]string{"Skipped", humanize.Comma(int64(b.SkippedCount))},
		[2]string{"Output", b.OutputDir},
	)
	if len(b.Info) > 0 {
		var info gsl.Info
		if err := json.Unmarshal(b.Info, &info); err == nil {
			pairs = append(pairs,
				[2]string{"Homepage", info.Homepage},
				[2]string{"Frames", fmt.Sprintf("%dx%d, depth %d channel", info.FrameWidth, info.FrameHeight, info.DepthChannels)},
			)
		}
	}
	if b.FailureKind != "" {
		pairs = append(pairs, [2]string{"Failure", fmt.Sprintf("%s: %s", b.FailureKind, b.ErrorMessage)})
	}
	fmt.Fprintln(out, renderDetails(pairs))

	if len(b.Splits) == 0 {
		return
	}
	rows := make([][]string, 0, len(b.Splits))
	for _, name := range b.Splits {
		rows = append(rows, []string{name, humanize.Comma(int64(counts[name]))})
	}
	fmt.Fprintln(out, renderTable([]string{"Split", "Stored"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func printStoredExamples(out io.Writer, examples []catalog.StoredExample) {
	if len(examples) == 0 {
		fmt.Fprintln(out, "No stored examples")
		return
	}
	rows := make([][]string, 0, len(examples))
	for _, ex := range examples {
		rows = append(rows, []string{ex.Split, fmt.Sprint(ex.Ordinal), ex.Key, ex.VideoPath})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Split", "#", "Key", "Video"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
