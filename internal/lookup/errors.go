package lookup

import (
	"errors"

	"github.com/2beens/phonetracker/internal/phone"
)

type ErrorKind string

const (
	KindEmptyInput    ErrorKind = "empty_input"
	KindParseError    ErrorKind = "parse_error"
	KindInvalidNumber ErrorKind = "invalid_number"
	KindUnexpected    ErrorKind = "unexpected"
)

func KindOf(err error) ErrorKind {
	var parseErr *phone.ParseError
	switch {
	case errors.Is(err, phone.ErrEmptyInput):
		return KindEmptyInput
	case errors.As(err, &parseErr):
		return KindParseError
	case errors.Is(err, phone.ErrInvalidNumber):
		return KindInvalidNumber
	default:
		return KindUnexpected
	}
}

// UserMessage is the banner text shown for a failed track action.
func UserMessage(err error) string {
	var parseErr *phone.ParseError
	switch KindOf(err) {
	case KindEmptyInput:
		return "Please enter a phone number."
	case KindParseError:
		errors.As(err, &parseErr)
		return "Error parsing number: " + parseErr.Cause.Error() + ". Please ensure the country code is included."
	case KindInvalidNumber:
		return "Invalid phone number. Please enter a valid number, including the country code."
	default:
		return "An unexpected error occurred: " + err.Error()
	}
}
