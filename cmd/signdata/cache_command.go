package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"signdata/internal/assets"
	"signdata/internal/download"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the download cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheVerifyCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show download cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.downloadManager(nil)
			if err != nil {
				return err
			}
			stats, err := manager.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:   %s\n", manager.Root())
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:    %s / %s\n", humanize.IBytes(uint64(stats.TotalBytes)), humanize.IBytes(uint64(stats.MaxBytes)))
			fmt.Fprintf(out, "Disk:    %s free of %s (floor %s)\n",
				humanize.IBytes(stats.FreeBytes),
				humanize.IBytes(stats.TotalFSBytes),
				humanize.IBytes(stats.MinFreeBytes),
			)
			printCacheEntries(out, stats.EntrySummaries)
			return nil
		},
	}
}

func printCacheEntries(out io.Writer, entries []download.EntrySummary) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached archives: none")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		updated := "unknown"
		if !entry.ModifiedAt.IsZero() {
			updated = entry.ModifiedAt.Local().Format(stampLayout)
		}
		rows = append(rows, []string{
			entry.Name,
			humanize.IBytes(uint64(entry.ArchiveBytes)),
			humanize.IBytes(uint64(entry.ExtractedBytes)),
			yesNo(entry.Verified),
			updated,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Entry", "Archive", "Extracted", "Checksum", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
}

type pruneView struct {
	download.PruneResult
	Stale download.CleanStaleResult `json:"stale"`
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var staleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune the download cache to its size budget now",
		Long: "Remove leftovers of interrupted downloads, then the oldest archives until " +
			"the cache fits cache.max_gib and the disk keeps cache.min_free_gib free. " +
			"The split manifests and supplementary archives are never pruned.",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.downloadManager(nil)
			if err != nil {
				return err
			}
			stale := manager.CleanStale(cmd.Context(), staleAfter)
			result, err := manager.Prune(cmd.Context(), assets.SplitArchiveName, assets.SupplementaryName)
			if ctx.jsonOutput() {
				if jsonErr := writeJSON(cmd, pruneView{PruneResult: result, Stale: stale}); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range stale.Removed {
				fmt.Fprintf(out, "Removed leftover %s\n", path)
			}
			for _, e := range stale.Errors {
				fmt.Fprintf(out, "Could not remove %s: %s\n", e.Path, e.Error)
			}
			if len(result.Removed) == 0 && err == nil {
				fmt.Fprintln(out, "No cache entries pruned")
				return nil
			}
			for _, name := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", name)
			}
			if len(result.Removed) > 0 {
				fmt.Fprintf(out, "Pruned %s\n", humanize.IBytes(uint64(result.FreedBytes)))
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&staleAfter, "stale-after", 24*time.Hour, "Age after which partial downloads count as abandoned")
	return cmd
}

func newCacheVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Rehash cached archives and report any that changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.downloadManager(nil)
			if err != nil {
				return err
			}
			results, err := manager.Verify(cmd.Context())
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if !r.OK {
					failed++
				}
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				lines := make([]statusLine, 0, len(results))
				for _, r := range results {
					detail := r.Detail
					if detail == "" {
						detail = "sha256 " + shortID(r.Actual)
					}
					lines = append(lines, statusLine{Label: r.Name, OK: r.OK, Detail: detail})
				}
				for _, line := range renderStatusLines(lines, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				if len(results) == 0 {
					fmt.Fprintln(out, "Cached archives: none")
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d cache entries failed verification", failed)
			}
			return nil
		},
	}
}
