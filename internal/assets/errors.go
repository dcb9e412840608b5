package assets

import (
	"errors"
	"fmt"
)

// ErrResolution matches every error returned by Resolver.Resolve.
var ErrResolution = errors.New("asset resolution failed")

// ResolutionError reports the asset that could not be resolved.
type ResolutionError struct {
	Asset string
	URL   string
	Err   error
}

func (e *ResolutionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("resolve asset %s: %v", e.Asset, e.Err)
	}
	return fmt.Sprintf("resolve asset %s (%s): %v", e.Asset, e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// ErrorKind classifies the failure for the build ledger.
func (e *ResolutionError) ErrorKind() string { return "resolution" }
