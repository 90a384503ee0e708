// Package domain defines core types, interfaces, and errors for the package index.
package domain

import "fmt"

// NotFoundError indicates a principal, group, or package was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// UnauthenticatedError indicates a missing or unverifiable credential.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// NotAuthorizedError indicates an authenticated caller with insufficient
// permission, or a failed password check on a self-service operation.
type NotAuthorizedError struct {
	Message string
}

func (e *NotAuthorizedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate username).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// MethodNotAllowedError indicates an operation that can never apply to its
// target, such as mutating the built-in admin.
type MethodNotAllowedError struct {
	Message string
}

func (e *MethodNotAllowedError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthenticated creates an UnauthenticatedError with a formatted message.
func ErrUnauthenticated(format string, args ...interface{}) *UnauthenticatedError {
	return &UnauthenticatedError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotAuthorized creates a NotAuthorizedError with a formatted message.
func ErrNotAuthorized(format string, args ...interface{}) *NotAuthorizedError {
	return &NotAuthorizedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrMethodNotAllowed creates a MethodNotAllowedError with a formatted message.
func ErrMethodNotAllowed(format string, args ...interface{}) *MethodNotAllowedError {
	return &MethodNotAllowedError{Message: fmt.Sprintf(format, args...)}
}
