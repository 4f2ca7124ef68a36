package domain

import (
	"errors"
	"fmt"
)

// Common domain errors.
var (
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrActionNotImplemented indicates the backend offers no such action.
	ErrActionNotImplemented = errors.New("action not implemented")

	// ErrValidation indicates the backend rejected a malformed resource.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a resource conflict.
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized indicates authentication failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates permission denied.
	ErrForbidden = errors.New("forbidden")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrConnectionFailed indicates the backend could not be reached.
	ErrConnectionFailed = errors.New("connection failed")
)

// NetworkNotFoundError indicates a network was not found.
type NetworkNotFoundError struct {
	ID string
}

func (e *NetworkNotFoundError) Error() string {
	return fmt.Sprintf("network not found: %s", e.ID)
}

// Is implements error matching.
func (e *NetworkNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ActionNotImplementedError is returned for every action trigger.
type ActionNotImplementedError struct {
	Action string
}

func (e *ActionNotImplementedError) Error() string {
	if e.Action == "" {
		return "no actions implemented"
	}
	return fmt.Sprintf("no actions implemented: %s", e.Action)
}

// Is implements error matching.
func (e *ActionNotImplementedError) Is(target error) bool {
	return target == ErrActionNotImplemented
}

// ValidationError indicates a malformed resource or attribute.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Is implements error matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BackendError carries a failure reported by the remote backend service.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsActionNotImplemented returns true if the error reports a missing action.
func IsActionNotImplemented(err error) bool {
	return errors.Is(err, ErrActionNotImplemented)
}

// IsValidation returns true if the error indicates a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict returns true if the error indicates a resource conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
