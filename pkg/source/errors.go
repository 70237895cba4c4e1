package source

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrUnsupportedFormat = errors.New("unsupported relation format")
	ErrNotFound          = errors.New("relation source not found")
	ErrTooManyRecords    = errors.New("too many relation records")
)

// Error provides structured information about a failed source operation.
type Error struct {
	Op     string // Operation that failed (e.g., "read", "decode", "query")
	Source string // Source name, see Source.Name
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

func wrap(op, source string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Source: source, Cause: err}
}
