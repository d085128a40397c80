// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSequenceNotFound indicates a sequence was not found by the given identifier.
	ErrSequenceNotFound = errors.New("sequence not found")

	// ErrPinNotFound indicates no pin registry entry matches the given identifier or action.
	ErrPinNotFound = errors.New("pin not found")

	// ErrPinConflict indicates a pin entry reuses the action or material id of another entry.
	ErrPinConflict = errors.New("pin action or material id already registered")

	// ErrChallengeNotFound indicates a challenge was not found by the given identifier.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeConflict indicates a challenge with the same title already exists.
	ErrChallengeConflict = errors.New("challenge title already exists")

	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserConflict indicates a user with the same pseudo or email already exists.
	ErrUserConflict = errors.New("user pseudo or email already exists")

	// ErrInvalidSortField indicates a sort column outside the allow-list.
	ErrInvalidSortField = errors.New("invalid sort field")

	// ErrInvalidSortOrder indicates a sort order other than asc or desc.
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

// EntityError wraps repository errors with the operation and the entity it targeted.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Entity string // Entity kind (e.g., "sequence", "pin")
	ID     string // Entity identifier if applicable
	Err    error  // Underlying error
}

func (e *EntityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEntityError creates a new entity error with context.
func NewEntityError(op, entity, id string, err error) *EntityError {
	return &EntityError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsNotFound checks if an error indicates a missing entity of any kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSequenceNotFound) ||
		errors.Is(err, ErrPinNotFound) ||
		errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict checks if an error indicates a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPinConflict) ||
		errors.Is(err, ErrChallengeConflict) ||
		errors.Is(err, ErrUserConflict)
}

// IsInvalidListOption checks if an error comes from rejected sort or pagination parameters.
func IsInvalidListOption(err error) bool {
	return errors.Is(err, ErrInvalidSortField) || errors.Is(err, ErrInvalidSortOrder)
}
