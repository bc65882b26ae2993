package pipeline

import (
	"errors"
	"fmt"
)

// Common pipeline errors
var (
	// ErrNoValidImages is returned when none of the given paths point at a
	// readable image file.
	ErrNoValidImages = errors.New("no valid images provided")

	// ErrStagingFailed is returned when pipeline artifacts cannot be written
	// under the output directory.
	ErrStagingFailed = errors.New("failed to stage pipeline artifacts")
)

// PipelineError wraps errors with additional context about pipeline failures.
type PipelineError struct {
	// Op is the operation that failed (e.g., "Process", "validateImages").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("pipeline: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("pipeline: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPipelineError creates a new PipelineError with the specified operation and underlying error.
func NewPipelineError(op string, err error, details string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapPipelineError wraps an error as a PipelineError if it isn't already one.
func WrapPipelineError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) {
		return err // Already wrapped
	}

	return NewPipelineError(op, err, details)
}
