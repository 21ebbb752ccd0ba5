// Package errors provides the error categories used across the logging
// pipeline. The category decides what happens next: a Temporary error from a
// sink write is retried, a Permanent one drops the batch, an InvalidInput
// error from configuration or column mapping validation stops startup.
//
// Example usage:
//
//	if col.MaxLength < 0 {
//	    return errors.NewInvalidInput(col.Name, "max length must not be negative")
//	}
//
//	if pgconn.Timeout(err) {
//	    return errors.NewTemporary("copy into log table timed out", err)
//	}
package errors

import (
	"fmt"
)

// PermanentError represents a failure that will not go away on retry.
type PermanentError struct {
	msg   string
	cause error
}

// NewPermanent creates a permanent error with an optional cause.
func NewPermanent(msg string, cause error) error {
	return &PermanentError{msg: msg, cause: cause}
}

func (e *PermanentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *PermanentError) Unwrap() error {
	return e.cause
}

// TemporaryError represents a failure that may succeed when retried, such as
// a dropped database connection.
type TemporaryError struct {
	msg   string
	cause error
}

// NewTemporary creates a temporary error with an optional cause.
func NewTemporary(msg string, cause error) error {
	return &TemporaryError{msg: msg, cause: cause}
}

func (e *TemporaryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *TemporaryError) Unwrap() error {
	return e.cause
}

// NotFoundError reports a missing named resource, e.g. a connection string
// or a column mapping version.
type NotFoundError struct {
	resource string
	id       string
	msg      string
	cause    error
}

// NewNotFound creates a not found error for resource id.
func NewNotFound(resource, id string) error {
	return &NotFoundError{resource: resource, id: id}
}

// NewNotFoundWithCause creates a not found error with an underlying cause.
func NewNotFoundWithCause(resource, id string, cause error) error {
	return &NotFoundError{resource: resource, id: id, cause: cause}
}

func (e *NotFoundError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s not found: %s (%v)", e.resource, e.id, e.cause)
	}
	return fmt.Sprintf("%s not found: %s", e.resource, e.id)
}

func (e *NotFoundError) Unwrap() error {
	return e.cause
}

// Resource returns the kind of resource that was missing.
func (e *NotFoundError) Resource() string {
	return e.resource
}

// ID returns the identifier that was looked up.
func (e *NotFoundError) ID() string {
	return e.id
}

// InvalidInputError reports a configuration value or declaration that fails
// validation.
type InvalidInputError struct {
	field string
	msg   string
	cause error
}

// NewInvalidInput creates an invalid input error for field.
func NewInvalidInput(field, msg string) error {
	return &InvalidInputError{field: field, msg: msg}
}

// NewInvalidInputWithCause creates an invalid input error with an underlying cause.
func NewInvalidInputWithCause(field, msg string, cause error) error {
	return &InvalidInputError{field: field, msg: msg, cause: cause}
}

func (e *InvalidInputError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid input for %s: %s (%v)", e.field, e.msg, e.cause)
	}
	return fmt.Sprintf("invalid input for %s: %s", e.field, e.msg)
}

func (e *InvalidInputError) Unwrap() error {
	return e.cause
}

// Field returns the name of the offending field.
func (e *InvalidInputError) Field() string {
	return e.field
}

// Message returns the validation message.
func (e *InvalidInputError) Message() string {
	return e.msg
}
