// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"

	"github.com/ledgerling/ledgerling/internal/service"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Categorizer errors.
	ErrAIUnavailable = errors.New("ai categorizer unavailable")
	ErrRateLimit     = errors.New("rate limit exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError represents a business rule violation that the caller must fix.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a business/validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError signals that a correction contradicts an established pattern.
// The learner aborts the write and surfaces the structured conflict to the
// caller instead of resolving it silently.
type ConflictError struct {
	Conflict service.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("correction for %q conflicts with existing pattern mapping to account %s (%s)",
		e.Conflict.PayeeName, e.Conflict.ExistingAccountCode, e.Conflict.ExistingAccountName)
}

// AsConflict extracts the conflict payload from an error chain, if present.
func AsConflict(err error) (*service.Conflict, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return &ce.Conflict, true
	}
	return nil, false
}
