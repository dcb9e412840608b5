package manifest

import (
	"errors"
	"fmt"
)

// ErrParse matches every malformed-manifest error.
var ErrParse = errors.New("manifest parse error")

// ParseError reports the manifest line (1-based) that could not be parsed.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest line %d: field %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("manifest line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ErrorKind classifies the failure for the build ledger.
func (e *ParseError) ErrorKind() string { return "parse" }
