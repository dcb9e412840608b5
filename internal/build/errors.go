package build

import (
	"context"
	"errors"
)

// ErrorClassifier is implemented by errors that carry a failure kind for the
// build ledger ("resolution", "lookup", "parse", "duplicate_key").
type ErrorClassifier interface {
	ErrorKind() string
}

// ErrBuildInProgress is returned when another build holds the output lock.
var ErrBuildInProgress = errors.New("another build is running for this output directory")

// FailureKind maps a build error to the kind recorded in the catalog.
func FailureKind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrBuildInProgress):
		return "locked"
	default:
		return "internal"
	}
}
