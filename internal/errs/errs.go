// Package errs provides the small error-bundling helper carried over from
// the teacher's libs/errors package, pairing a cause, a message and data.
// No other package in this module imports it; the payments core uses the
// closed ErrorKind taxonomy in package payments instead.
package errs

import (
	"encoding/json"
	"fmt"
)

// Bundle pairs a human-readable message with the error that caused it and
// optional structured data, and supports errors.Unwrap/errors.Is/As via Cause.
type Bundle struct {
	cause   error
	message string
	data    interface{}
}

// New creates a Bundle.
func New(cause error, message string, data interface{}) error {
	return &Bundle{cause: cause, message: message, data: data}
}

// Wrap creates a Bundle with no attached data.
func Wrap(cause error, message string) error {
	return &Bundle{cause: cause, message: message}
}

// Error implements error.
func (e *Bundle) Error() string {
	return e.message
}

// Cause returns the wrapped error.
func (e *Bundle) Cause() error { return e.cause }

// Unwrap supports errors.Is/As.
func (e *Bundle) Unwrap() error { return e.cause }

// Data returns the attached structured data, if any.
func (e *Bundle) Data() interface{} { return e.data }

// DataToString renders the attached data as JSON for logging.
func (e *Bundle) DataToString() string {
	if e.data == nil {
		return ""
	}
	b, err := json.Marshal(e.data)
	if err != nil {
		return fmt.Sprintf("error marshaling bundle data: %s", err)
	}
	return string(b)
}
