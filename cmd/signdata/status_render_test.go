package main

import (
	"io"
	"strings"
	"testing"

	"signdata/internal/preflight"
)

func TestRenderStatusLinesAlignsDetails(t *testing.T) {
	got := renderStatusLines([]statusLine{
		{Label: "Cache directory", Detail: "does not exist"},
		{Label: "Output", OK: true},
	}, false)
	want := []string{
		"  Cache directory: [FAIL] does not exist",
		"  Output:          [OK]",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d mismatch\n got: %q\nwant: %q", i, got[i], want[i])
		}
	}
}

func TestRenderStatusLinesWithColor(t *testing.T) {
	got := renderStatusLines([]statusLine{{Label: "Archive host", OK: true, Detail: "reachable"}}, true)
	if !strings.HasPrefix(got[0], ansiGreen) || !strings.HasSuffix(got[0], ansiReset) {
		t.Fatalf("expected green line, got %q", got[0])
	}
}

func TestPrintPreflight(t *testing.T) {
	var sb strings.Builder
	printPreflight(&sb, []preflight.Result{
		{Name: "Cache directory", Passed: true, Detail: "/tmp (read/write ok)"},
		{Name: "Archive host", Detail: "unexpected status 503"},
	})
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] /tmp") || !strings.Contains(lines[1], "[FAIL] unexpected status 503") {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("ΚΑΛΗΜΕΡΑ", 20); got != "ΚΑΛΗΜΕΡΑ" {
		t.Fatalf("short value changed: %q", got)
	}
	if got := truncate("ΚΑΛΗΜΕΡΑ ΕΓΩ", 5); got != "ΚΑΛΗ…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}}, nil)
	if !strings.Contains(out, "x") || !strings.Contains(out, "A") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table without headers")
	}
}
