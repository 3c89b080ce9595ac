package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// ErrTransport marks a retryable network, timeout or HTTP 5xx failure.
	ErrTransport = errors.New("transport error")
	// ErrSourceAbsent marks a page that does not exist on the wiki.
	ErrSourceAbsent = errors.New("source page absent")
	// ErrParseEmpty marks an existing page without any recognised template.
	ErrParseEmpty = errors.New("no template found")
	// ErrPersistence marks a single rejected catalog write.
	ErrPersistence = errors.New("persistence error")
	// ErrStoreUnavailable marks a catalog store that cannot be reached at all.
	ErrStoreUnavailable = errors.New("catalog store unavailable")
	// ErrStateCorrupt marks a progress file that exists but cannot be read back.
	ErrStateCorrupt = errors.New("progress state corrupt")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	fields := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		fields[i] = fe.Field
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Fields returns the names of the failing fields in order.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe.Field
	}
	return out
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// TransportError is a batch-level fetch failure. It always unwraps to ErrTransport
// so callers can decide on retries with errors.Is.
type TransportError struct {
	// Status is the HTTP status code, 0 when the request never got a response.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: status %d", e.Status)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}
