package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that was rejected before anything was written
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a lookup by key misses
	ErrNotFound = errors.New("not found")
	// ErrImport marks a bulk import batch that was aborted as a whole
	ErrImport = errors.New("import failed")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// ImportError aborts a whole import batch. Cause carries the underlying failure.
type ImportError struct {
	Row   int // 1-based source row, 0 when the failure is not tied to a row
	Cause error
}

func (e *ImportError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s at row %d: %v", ErrImport, e.Row, e.Cause)
	}
	return fmt.Sprintf("%s: %v", ErrImport, e.Cause)
}

func (e *ImportError) Unwrap() error { return e.Cause }

func (e *ImportError) Is(target error) bool { return target == ErrImport }

// Kind returns a short label for logging: validation, not_found, import or internal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrImport):
		return "import"
	default:
		return "internal"
	}
}
