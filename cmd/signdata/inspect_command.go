package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"signdata/internal/gsl"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <split>",
		Short: "Preview the examples a split would produce",
		Long: "Resolve the corpus and generate examples for one split without writing " +
			"outputs. Lookup failures are reported the same way a build reports them.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, release, err := ctx.newBuilder(cmd, false)
			if err != nil {
				return err
			}
			defer release()

			examples, skipped, err := builder.Preview(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, examples)
			}
			printExamples(cmd.OutOrStdout(), examples)
			fmt.Fprintf(cmd.OutOrStdout(), "Showing %d examples of %s", len(examples), args[0])
			if skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d rows skipped)", skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum examples to show (0 for all)")
	return cmd
}

func printExamples(out io.Writer, examples []gsl.Example) {
	if len(examples) == 0 {
		fmt.Fprintln(out, "No examples")
		return
	}
	rows := make([][]string, 0, len(examples))
	for _, ex := range examples {
		label := ex.Gloss
		if ex.Schema == gsl.SchemaRich {
			label = strings.Join(ex.Sentence.Glosses, " ")
		}
		rows = append(rows, []string{
			ex.Key,
			strconv.Itoa(ex.Line),
			ex.Signer,
			truncate(label, 40),
			filepath.Base(ex.VideoPath),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Key", "Line", "Signer", "Glosses", "Video"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	))
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
