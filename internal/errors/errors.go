// Package errors provides sentinel errors for the stackgen CLI.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for known conditions.
var (
	// ErrConfiguration indicates a broken module source (duplicate names,
	// dangling references). Fatal at registry load time.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution indicates the requested module selection could not be
	// resolved (unknown name, missing dependency, conflict, cycle).
	ErrResolution = errors.New("resolution error")

	// ErrGeneration indicates project generation failed (missing template
	// value, merge conflict, filesystem write failure).
	ErrGeneration = errors.New("generation error")

	// ErrNotFound indicates a module or file was not found.
	ErrNotFound = errors.New("not found")
)

// DetailError captures structured error information for user-facing output.
type DetailError struct {
	// Type is the error category (required).
	Type string

	// Message is the specific description (required).
	Message string

	// Location is the file or module path involved (optional).
	Location string

	// Context contains additional key-value context (optional).
	Context map[string]string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	var b strings.Builder

	b.WriteString("Error: ")
	b.WriteString(e.Type)
	b.WriteString("\n")

	if e.Location != "" {
		b.WriteString("  Location: ")
		b.WriteString(e.Location)
		b.WriteString("\n")
	}
	for k, v := range e.Context {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a configuration error with details.
func NewConfigurationError(message, location, hint string) error {
	return &DetailError{
		Type:     "invalid module source",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrConfiguration,
	}
}

// NewGenerationError creates a generation error with details.
func NewGenerationError(message, location, hint string) error {
	return &DetailError{
		Type:     "generation failed",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrGeneration,
	}
}

// NewNotFoundError creates a not found error with details.
func NewNotFoundError(message, location, hint string) error {
	return &DetailError{
		Type:     "not found",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrNotFound,
	}
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
