package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed or conflicting request. The reason is
// meant to be shown to the caller as-is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

func Invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// PermissionError means the caller lacks ownership or role for the target.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string { return e.Reason }

func Forbidden(reason string) error {
	return &PermissionError{Reason: reason}
}

// NotFoundError means a referenced id does not resolve.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// StateError rejects an operation attempted from an incompatible lifecycle
// state.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }

func BadState(reason string) error {
	return &StateError{Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
