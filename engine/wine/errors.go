package wine

import (
	"errors"
	"fmt"
)

// Sentinel errors for record validation failures.
var (
	ErrMalformed     = errors.New("malformed record")
	ErrMissingID     = errors.New("missing id")
	ErrMissingPoints = errors.New("missing points")
	ErrMissingTitle  = errors.New("missing title")
	ErrInvalidID     = errors.New("id must be positive")
)

// FieldError wraps a sentinel with the offending field and value.
type FieldError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("wine: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Wrapped }

// NewFieldError creates a FieldError.
func NewFieldError(field, value string, wrapped error) *FieldError {
	return &FieldError{Field: field, Value: value, Wrapped: wrapped}
}
