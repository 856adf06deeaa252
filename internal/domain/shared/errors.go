package shared

import "errors"

// ErrorKind classifies a DomainError by how the caller should react to it
type ErrorKind string

const (
	// KindValidation marks malformed or missing input, rejected before any state is touched
	KindValidation ErrorKind = "VALIDATION"
	// KindPrecondition marks a well-formed request that the current state does not allow
	KindPrecondition ErrorKind = "PRECONDITION"
	// KindNotFound marks an addressed resource that does not exist
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindConflict marks a concurrent writer winning a race; the request may be retried
	KindConflict ErrorKind = "CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindPrecondition,
	}
}

// NewValidationError creates an input validation error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewPreconditionError creates an error for a transition the current state forbids
func NewPreconditionError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindPrecondition}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindNotFound}
}

// NewConflictError creates a concurrency conflict error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindConflict}
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewPreconditionError("INVALID_STATE", "Operation not allowed in current state")
)

// KindOf returns the kind of the first DomainError in err's chain, or "" for
// errors that did not originate in the domain (storage and transport failures).
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsValidation reports whether err is an input validation failure
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsPrecondition reports whether err is a precondition-not-met outcome
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }

// IsNotFound reports whether err is a not-found outcome
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a concurrency conflict
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
