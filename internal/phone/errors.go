package phone

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput    = errors.New("empty phone number")
	ErrInvalidNumber = errors.New("invalid phone number")
)

// ParseError is returned when the input cannot be parsed as a phone number at all.
type ParseError struct {
	Input string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse phone number [%s]: %s", e.Input, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
