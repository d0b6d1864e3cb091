// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrValidation marks a local, pre-network failure of a create
	// payload. It never reaches the wire and is reported against the
	// specific row id.
	ErrValidation = errors.New("validation failed")

	// ErrRemote marks a network or server failure on a mutation or
	// fetch. Row-scoped and recoverable for create/update; logged and
	// skipped for delete.
	ErrRemote = errors.New("remote operation failed")

	// ErrReconciliation marks an internal merge or key-build failure.
	// It is never propagated to callers; the engine degrades to a safe
	// fallback and logs.
	ErrReconciliation = errors.New("reconciliation failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a row id unknown to the working set.
	ErrNotFound = errors.New("not found")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage extracts the user-facing text from an error chain,
// falling back to the raw error string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}
