// Package service holds the business rules of the task-list service: who
// may do what to which list or task, and what a valid request looks like.
package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them onto HTTP statuses with errors.Is/As;
// anything else is unexpected and must not leak to clients.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidGrantee  = errors.New("cannot share a task list with its owner")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Resource specific not-found errors, all matching ErrNotFound.
var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrTaskListNotFound = fmt.Errorf("task list %w", ErrNotFound)
	ErrTaskNotFound     = fmt.Errorf("task %w", ErrNotFound)
	ErrShareNotFound    = fmt.Errorf("share %w", ErrNotFound)
)

// Authentication failures, all matching ErrUnauthenticated.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("invalid access token: %w", ErrUnauthenticated)
)

// ValidationError reports the first rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
