package manifest

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const richManifest = "video_id,signer,sentence,translation,annotation,instance\n" +
	"health3_signer1_rep1,signer1,s12,Πού πονάει;,ΠΟΥ ΠΟΝΑΩ,1\n" +
	"kep1_signer2_rep4,signer2,s7,\"Θέλω, ένα πιστοποιητικό\",ΕΓΩ ΘΕΛΩ ΠΙΣΤΟΠΟΙΗΤΙΚΟ ΘΕΛΩ,4\n"

func drain(t *testing.T, src Source) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestReadCSVParsesRows(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(richManifest))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("Len = %d, want 2", src.Len())
	}
	rows := drain(t, src)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	first := rows[0]
	if first.VideoID != "health3_signer1_rep1" || first.Signer != "signer1" || first.SentenceID != "s12" || first.Instance != 1 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.Line != 2 {
		t.Fatalf("Line = %d, want 2", first.Line)
	}
	if rows[1].Translation != "Θέλω, ένα πιστοποιητικό" {
		t.Fatalf("quoted translation not preserved: %q", rows[1].Translation)
	}
	want := []string{"ΕΓΩ", "ΘΕΛΩ", "ΠΙΣΤΟΠΟΙΗΤΙΚΟ", "ΘΕΛΩ"}
	if got := rows[1].Glosses(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Glosses = %v, want %v", got, want)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after exhaustion, got %v", err)
	}
}

func TestGlossesSplitOnAnyWhitespace(t *testing.T) {
	row := Row{Annotation: "GLOSS-A  GLOSS-B\tGLOSS-C"}
	want := []string{"GLOSS-A", "GLOSS-B", "GLOSS-C"}
	if got := row.Glosses(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Glosses = %v, want %v", got, want)
	}
	if got := (Row{}).Glosses(); len(got) != 0 {
		t.Fatalf("empty annotation should give no glosses, got %v", got)
	}
}

func TestDecomposedTextKeepsManifestBytes(t *testing.T) {
	annotation := "\u0391\u0301\u039b\u03a6\u0391 \u0392\u0397\u03a4\u0391"
	input := "video_id,signer,sentence,translation,annotation,instance\n" +
		"health1_a,signer1,s1,\u03b1\u0301\u03bb\u03c6\u03b1," + annotation + ",1\n"
	src, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	rows := drain(t, src)
	if rows[0].Annotation != annotation {
		t.Fatalf("Annotation = %q, want %q", rows[0].Annotation, annotation)
	}
	if rows[0].Translation != "\u03b1\u0301\u03bb\u03c6\u03b1" {
		t.Fatalf("Translation rewritten: %q", rows[0].Translation)
	}
	if got, want := rows[0].Glosses(), strings.Fields(annotation); !reflect.DeepEqual(got, want) {
		t.Fatalf("Glosses = %q, want %q", got, want)
	}

	pipe := drain(t, NewPipeSource(strings.NewReader("health1_a| \u0391\u0301\u039b\u03a6\u0391 \n")))
	if pipe[0].Gloss != "\u0391\u0301\u039b\u03a6\u0391" {
		t.Fatalf("Gloss rewritten: %q", pipe[0].Gloss)
	}
}

func TestReadCSVAcceptsReorderedColumnsAndBOM(t *testing.T) {
	input := "\ufeffinstance,annotation,translation,sentence,signer,video_id\n" +
		"2,A B,text,s1,signer9,police5_s2_t1\n"
	src, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	rows := drain(t, src)
	if rows[0].VideoID != "police5_s2_t1" || rows[0].Instance != 2 || rows[0].Signer != "signer9" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestReadCSVErrors(t *testing.T) {
	header := "video_id,signer,sentence,translation,annotation,instance\n"
	cases := []struct {
		name  string
		input string
		line  int
		field string
	}{
		{"empty", "", 1, ""},
		{"missing column", "video_id,signer,sentence,translation,annotation\n", 1, "instance"},
		{"short row", header + "health1_a,signer1,s1,text,A\n", 2, ""},
		{"bad instance", header + "health1_a,signer1,s1,text,A,first\n", 2, "instance"},
		{"empty id", header + "health1_a,signer1,s1,text,A,1\n,signer1,s1,text,A,1\n", 3, "video_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.input))
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Line != tc.line || pe.Field != tc.field {
				t.Fatalf("got line %d field %q, want line %d field %q", pe.Line, pe.Field, tc.line, tc.field)
			}
			if pe.ErrorKind() != "parse" {
				t.Fatalf("unexpected kind %q", pe.ErrorKind())
			}
		})
	}
}

func TestPipeSourceStreamsRows(t *testing.T) {
	input := "health3_signer1_sent2|GLOSS_X\n\n kep2_signer4_sent1 | ΓΕΙΑ \n"
	src := NewPipeSource(strings.NewReader(input))
	rows := drain(t, src)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].VideoID != "health3_signer1_sent2" || rows[0].Gloss != "GLOSS_X" || rows[0].Line != 1 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].VideoID != "kep2_signer4_sent1" || rows[1].Gloss != "ΓΕΙΑ" || rows[1].Line != 3 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestPipeSourceRejectsWrongFieldCount(t *testing.T) {
	src := NewPipeSource(strings.NewReader("health1_a|A\nhealth1_b|B|C\nhealth1_c|C\n"))
	if _, err := src.Next(); err != nil {
		t.Fatalf("first row: %v", err)
	}
	_, err := src.Next()
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 2 {
		t.Fatalf("expected parse error on line 2, got %v", err)
	}
	if _, again := src.Next(); again != err {
		t.Fatalf("source must stay failed, got %v", again)
	}
}

func TestOpenByFormat(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "GSL-SD-train.csv")
	pipePath := filepath.Join(dir, "train.txt")
	if err := os.WriteFile(csvPath, []byte(richManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pipePath, []byte("police1_a|A\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	csvSrc, err := Open(csvPath, FormatCSV)
	if err != nil {
		t.Fatalf("Open csv: %v", err)
	}
	defer csvSrc.Close()
	if rows := drain(t, csvSrc); len(rows) != 2 {
		t.Fatalf("csv rows = %d, want 2", len(rows))
	}

	pipeSrc, err := Open(pipePath, FormatPipe)
	if err != nil {
		t.Fatalf("Open pipe: %v", err)
	}
	if rows := drain(t, pipeSrc); len(rows) != 1 {
		t.Fatalf("pipe rows = %d, want 1", len(rows))
	}
	if err := pipeSrc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := Open(filepath.Join(dir, "missing.csv"), FormatCSV); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
