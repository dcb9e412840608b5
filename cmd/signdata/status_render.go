package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"signdata/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// statusLine is one labelled pass/fail row of doctor or cache verify output.
type statusLine struct {
	Label  string
	OK     bool
	Detail string
}

// renderStatusLines aligns the details of lines after the longest label:
//
//	Cache directory:  [OK] /cache (read/write ok)
//	Archive host:     [FAIL] unexpected status 503
func renderStatusLines(lines []statusLine, colorize bool) []string {
	width := 0
	for _, l := range lines {
		width = max(width, len(l.Label)+1)
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		tag, color := "[OK]", ansiGreen
		if !l.OK {
			tag, color = "[FAIL]", ansiRed
		}
		text := fmt.Sprintf("  %-*s %s", width, l.Label+":", strings.TrimSpace(tag+" "+l.Detail))
		if colorize {
			text = color + text + ansiReset
		}
		out = append(out, text)
	}
	return out
}

func printPreflight(out io.Writer, results []preflight.Result) {
	lines := make([]statusLine, 0, len(results))
	for _, r := range results {
		lines = append(lines, statusLine{Label: r.Name, OK: r.Passed, Detail: strings.TrimSpace(r.Detail)})
	}
	for _, line := range renderStatusLines(lines, shouldColorize(out)) {
		fmt.Fprintln(out, line)
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// shouldColorize honours NO_COLOR and only colours terminals.
func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(writer)
}
