package manifest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Format selects the manifest layout.
type Format int

const (
	// FormatCSV is the headered continuous-sentence layout.
	FormatCSV Format = iota
	// FormatPipe is the video_id|gloss isolated-sign layout.
	FormatPipe
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// Columns lists the header names required in CSV manifests.
var Columns = []string{"video_id", "signer", "sentence", "translation", "annotation", "instance"}

// Source yields manifest rows in file order and returns io.EOF when done.
type Source interface {
	Next() (Row, error)
	Close() error
}

// Open opens the manifest at path in the given format.
func Open(path string, format Format) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	switch format {
	case FormatCSV:
		defer f.Close()
		return ReadCSV(f)
	case FormatPipe:
		src := NewPipeSource(f)
		src.closer = f
		return src, nil
	default:
		f.Close()
		return nil, fmt.Errorf("unknown manifest format %d", format)
	}
}

// CSVSource serves rows that were read in full up front.
type CSVSource struct {
	rows []Row
	pos  int
}

// ReadCSV consumes the whole CSV manifest from r. Any malformed row fails the
// whole read.
func ReadCSV(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 1, Err: errors.New("missing header row")}
		}
		return nil, csvError(err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[strings.ToLower(name)] = i
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{Line: 1, Field: col, Err: errors.New("missing column")}
		}
	}
	reader.FieldsPerRecord = len(header)

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := reader.FieldPos(0)
		row, err := csvRow(line, record, index)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return &CSVSource{rows: rows}, nil
}

func csvRow(line int, record []string, index map[string]int) (Row, error) {
	field := func(name string) string { return strings.TrimSpace(record[index[name]]) }

	row := Row{
		Line:        line,
		VideoID:     field("video_id"),
		Signer:      field("signer"),
		SentenceID:  field("sentence"),
		Translation: field("translation"),
		Annotation:  field("annotation"),
	}
	if row.VideoID == "" {
		return Row{}, &ParseError{Line: line, Field: "video_id", Err: errors.New("empty value")}
	}
	instance, err := strconv.Atoi(field("instance"))
	if err != nil {
		return Row{}, &ParseError{Line: line, Field: "instance", Err: err}
	}
	row.Instance = instance
	return row, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("read manifest: %w", err)
}

// Next implements Source.
func (s *CSVSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Len reports the number of rows read.
func (s *CSVSource) Len() int { return len(s.rows) }

// Close implements Source.
func (s *CSVSource) Close() error { return nil }

// PipeSource reads video_id|gloss lines lazily. Blank lines are skipped.
type PipeSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
	err     error
}

// NewPipeSource wraps r. The caller keeps ownership of r.
func NewPipeSource(r io.Reader) *PipeSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &PipeSource{scanner: scanner}
}

// Next implements Source.
func (s *PipeSource) Next() (Row, error) {
	if s.err != nil {
		return Row{}, s.err
	}
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, "|")
		if len(parts) != 2 {
			s.err = &ParseError{Line: s.line, Err: fmt.Errorf("expected 2 fields separated by '|', got %d", len(parts))}
			return Row{}, s.err
		}
		id := strings.TrimSpace(parts[0])
		if id == "" {
			s.err = &ParseError{Line: s.line, Field: "video_id", Err: errors.New("empty value")}
			return Row{}, s.err
		}
		return Row{Line: s.line, VideoID: id, Gloss: strings.TrimSpace(parts[1])}, nil
	}
	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("read manifest: %w", err)
		return Row{}, s.err
	}
	s.err = io.EOF
	return Row{}, io.EOF
}

// Close implements Source.
func (s *PipeSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
