package gsl

import (
	"errors"
	"fmt"
	"strings"

	"signdata/internal/assets"
)

var (
	// ErrLookup matches every *LookupError.
	ErrLookup = errors.New("asset lookup failed")
	// ErrDuplicateKey matches every *DuplicateKeyError.
	ErrDuplicateKey = errors.New("duplicate example key")
)

// LookupError reports a manifest row whose media file could not be pinned to
// exactly one resolved asset.
type LookupError struct {
	VideoID  string
	Filename string
	Kind     assets.Kind
	Scenario string
	// Matches holds the candidate paths when the file was found more than once.
	Matches []string
	Err     error
}

func (e *LookupError) Error() string {
	switch {
	case len(e.Matches) > 1:
		return fmt.Sprintf("%s %s for %s is ambiguous: found in %s", e.Kind, e.Filename, e.VideoID, strings.Join(e.Matches, ", "))
	case e.Err != nil:
		return fmt.Sprintf("%s %s for %s: %v", e.Kind, e.Filename, e.VideoID, e.Err)
	default:
		return fmt.Sprintf("%s %s for %s not found in %s assets", e.Kind, e.Filename, e.VideoID, e.Scenario)
	}
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// ErrorKind classifies the failure for the build ledger.
func (e *LookupError) ErrorKind() string { return "lookup" }

// DuplicateKeyError reports a second row producing an already emitted key or
// video id.
type DuplicateKeyError struct {
	Split     string
	Key       string
	VideoID   string
	FirstLine int
	Line      int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("split %s: duplicate key %q (video %s) on manifest line %d, first seen on line %d",
		e.Split, e.Key, e.VideoID, e.Line, e.FirstLine)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// ErrorKind classifies the failure for the build ledger.
func (e *DuplicateKeyError) ErrorKind() string { return "duplicate_key" }
