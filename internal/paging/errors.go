package paging

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken signals a continuation token that cannot be decoded.
	ErrInvalidToken = errors.New("invalid continuation token")
	// ErrPaginationConflict signals that a token no longer resolves against
	// the current state of the collection. Clients restart without a token.
	ErrPaginationConflict = errors.New("pagination conflict")
)

// ValidationError reports a malformed paging or selector parameter.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

// NewValidationError builds a ValidationError for field with the offending value.
func NewValidationError(field, value string, cause error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: cause}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPaginationConflict, fmt.Sprintf(format, args...))
}
