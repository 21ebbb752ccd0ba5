package errors

import (
	"fmt"
)

// Wrap adds context to err and keeps its category. Uncategorized errors
// become permanent.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsTemporary(err):
		return NewTemporary(msg, err)
	case IsNotFound(err):
		var nfe *NotFoundError
		As(err, &nfe)
		return &NotFoundError{resource: nfe.resource, id: nfe.id, msg: msg, cause: err}
	case IsInvalidInput(err):
		var iie *InvalidInputError
		As(err, &iie)
		return NewInvalidInputWithCause(iie.field, msg, err)
	default:
		return NewPermanent(msg, err)
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
