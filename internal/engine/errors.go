package engine

import (
	"context"
	"errors"
	"fmt"

	"medallion/internal/validate"
)

// ErrRunFailed is returned by Summary.Err when at least one table failed.
var ErrRunFailed = errors.New("run failed")

// ErrBlocked marks a unit skipped because something it reads failed.
var ErrBlocked = errors.New("blocked by upstream failure")

// ValidationFailure is the validator's structured rejection.
type ValidationFailure = validate.Failure

type ExtractionError struct {
	Namespace string
	Table     string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s.%s: %v", e.Namespace, e.Table, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransformationError covers transform errors, recovered panics and units
// blocked by an upstream failure (Upstream set, Err wraps ErrBlocked).
type TransformationError struct {
	Unit     string
	Upstream string
	Err      error
}

func (e *TransformationError) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("transform %s: blocked by upstream %s", e.Unit, e.Upstream)
	}
	return fmt.Sprintf("transform %s: %v", e.Unit, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

type LoadError struct {
	Namespace string
	Table     string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s.%s: %v", e.Namespace, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FatalError aborts the whole run: a bad plan, a cancelled context.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

func isFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fatal(err error) error {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe
	}
	return &FatalError{Err: err}
}
