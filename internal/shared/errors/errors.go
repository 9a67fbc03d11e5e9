// Package errors defines the failure taxonomy shared by the document store
// backends and the scene persistence layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	// ErrorTypeConflict marks optimistic-concurrency violations. A write
	// carrying a stale version token fails with this type and is the only
	// failure callers are expected to react to specifically.
	ErrorTypeConflict ErrorType = "CONFLICT_ERROR"

	ErrorTypeNotFound    ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE_ERROR"
	ErrorTypeCorrupt     ErrorType = "CORRUPT_PAYLOAD_ERROR"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
)

// Common application errors.
var (
	// ErrVersionMismatch is the sentinel behind every version-token conflict.
	// Check with IsVersionMismatch rather than direct comparison.
	ErrVersionMismatch = errors.New("document version mismatch")

	ErrNotFound            = errors.New("resource not found")
	ErrMissingDocumentID   = errors.New("document is missing the required id property")
	ErrDocumentExists      = errors.New("document already exists")
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrStoreNotInitialized = errors.New("document store is not initialized")
	ErrCorruptPayload      = errors.New("stored payload is corrupt")
)

// AppError represents an application error with context.
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error.
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name.
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewVersionMismatchError creates the conflict error raised when a versioned
// write supplies a token that does not match the stored one.
func NewVersionMismatchError(collection, id string) *AppError {
	return NewAppError(ErrorTypeConflict, "document was modified by another writer", http.StatusConflict).
		WithCause(ErrVersionMismatch).
		WithDetail("collection", collection).
		WithDetail("id", id)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithCause(ErrNotFound)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewUnavailableError creates an error for an unreachable backend.
func NewUnavailableError(message string) *AppError {
	return NewAppError(ErrorTypeUnavailable, message, http.StatusServiceUnavailable)
}

// NewCorruptPayloadError creates an error for unparsable stored data.
func NewCorruptPayloadError(message string) *AppError {
	return NewAppError(ErrorTypeCorrupt, message, http.StatusInternalServerError).
		WithCause(ErrCorruptPayload)
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapError wraps an error with context, passing AppErrors through unchanged.
func WrapError(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// IsVersionMismatch reports whether an error is a version-token conflict.
func IsVersionMismatch(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeConflict {
		return true
	}
	return errors.Is(err, ErrVersionMismatch)
}

// IsNotFound reports whether an error is a not found error.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeNotFound {
		return true
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCollectionNotFound)
}

// IsValidation reports whether an error is a validation error.
func IsValidation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeValidation {
		return true
	}
	return errors.Is(err, ErrMissingDocumentID)
}

// IsUnavailable reports whether an error indicates an unreachable backend.
func IsUnavailable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeUnavailable {
		return true
	}
	return errors.Is(err, ErrStoreNotInitialized)
}

// IsCorruptPayload reports whether an error indicates unparsable stored data.
func IsCorruptPayload(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeCorrupt {
		return true
	}
	return errors.Is(err, ErrCorruptPayload)
}
