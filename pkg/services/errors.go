// Package services implements the sequence lifecycle, the pin registry, challenges and the device token
// operations on top of the persistence layer.
package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service either is one of these (through ServiceError) or is a
// device, compile or persistence error passed through unchanged.
var (
	// ErrInvalidRequest is a client error (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidStatus  = errors.New("invalid sequence status")

	// ErrNotFound covers unknown ids and ids the caller may not see (404 Not Found).
	ErrNotFound = errors.New("not found")

	// ErrForbidden is a role failure on an operation whose existence is public (403 Forbidden).
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is a uniqueness violation (409 Conflict).
	ErrConflict = errors.New("conflict")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Kind    error  // One of the sentinel errors above
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return target == e.Kind || errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidStatus)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a uniqueness conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Kind:    ErrInvalidRequest,
		Err:     err,
	}
}

func newNotFound(op, entity, id string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "not_found",
		Message: fmt.Sprintf("%s %s not found", entity, id),
		Kind:    ErrNotFound,
		Err:     err,
	}
}

func newConflict(op, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "conflict",
		Message: message,
		Kind:    ErrConflict,
		Err:     err,
	}
}
