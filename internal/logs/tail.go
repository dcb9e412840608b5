package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// Result holds lines read from a log file and the offset just past them.
type Result struct {
	Lines  []string
	Offset int64
}

// Last returns the final n lines of path. A missing file yields no lines.
func Last(path string, n int) (Result, error) {
	file, size, err := open(path)
	if err != nil || file == nil {
		return Result{}, err
	}
	defer file.Close()

	if n <= 0 {
		return Result{Offset: size}, nil
	}

	ring := make([]string, n)
	count, next := 0, 0
	scanner := newScanner(file)
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % n
		count++
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("read log file: %w", err)
	}

	kept := min(count, n)
	lines := make([]string, kept)
	start := 0
	if count > n {
		start = next
	}
	for i := range kept {
		lines[i] = ring[(start+i)%n]
	}
	return Result{Lines: lines, Offset: size}, nil
}

// Since returns the complete lines appended after offset. A partial last line
// is left for the next call.
func Since(path string, offset int64) (Result, error) {
	file, size, err := open(path)
	if err != nil || file == nil {
		return Result{}, err
	}
	defer file.Close()

	if offset < 0 || offset > size {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("seek log file: %w", err)
	}

	result := Result{Offset: offset}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("read log file: %w", err)
		}
		result.Offset += int64(len(line))
		result.Lines = append(result.Lines, line[:len(line)-1])
	}
}

// Follow polls path every interval starting at offset and calls fn for each
// new line until ctx is done.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, fn func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := Since(path, offset)
		if err != nil {
			return err
		}
		for _, line := range res.Lines {
			fn(line)
		}
		offset = res.Offset

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func open(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	return file, info.Size(), nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
