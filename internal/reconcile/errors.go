package reconcile

import (
	"errors"
	"fmt"
)

// ErrNoJSONFound is returned when no JSON object can be located in a response
var ErrNoJSONFound = errors.New("no JSON object found in response")

// InvalidJSONError is returned when a located object cannot be parsed even
// after repair. Message is the parser error of the first attempt.
type InvalidJSONError struct {
	Message string
	Err     error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("invalid JSON: %s", e.Message)
}

func (e *InvalidJSONError) Unwrap() error {
	return e.Err
}

// MissingFieldError is returned when a required top-level field is absent
// or has the wrong shape.
type MissingFieldError struct {
	Field string
	Want  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q (want %s)", e.Field, e.Want)
}
