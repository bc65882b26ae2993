package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrMissingAPIKey is returned when the selected provider has no API key configured.
	ErrMissingAPIKey = errors.New("missing extraction provider API key")

	// ErrUnknownProvider is returned when EXTRACTOR_PROVIDER names a provider
	// this build does not support.
	ErrUnknownProvider = errors.New("unknown extraction provider")

	// ErrNoJSON is returned when the model answer contains no JSON object at all.
	ErrNoJSON = errors.New("model did not return a valid JSON object")

	// ErrInvalidResponse is returned when the model answer contains JSON that
	// does not decode into the expected extraction envelope.
	ErrInvalidResponse = errors.New("invalid extraction response")

	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("empty extraction response")

	// ErrQuotaExceeded is returned when the provider rejects the request for
	// quota or rate-limit reasons.
	ErrQuotaExceeded = errors.New("extraction provider quota exceeded")
)

// ExtractionError wraps errors with additional context about extraction failures.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "Extract", "ParseResponse").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError with the specified operation and underlying error.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return err // Already wrapped
	}

	return NewExtractionError(op, err, details)
}
