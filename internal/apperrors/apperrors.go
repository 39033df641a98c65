package apperrors

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	Forbidden
	NotFound
	Conflict
)

// Detail describes one invalid input field.
type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an error with a message that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Details []Detail
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Invalid(message string, details ...Detail) *Error {
	return &Error{Kind: Validation, Message: message, Details: details}
}

func NotFoundf(what string) *Error {
	return &Error{Kind: NotFound, Message: what + " not found"}
}

// KindOf returns the kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message and details to send to the client. Internal
// errors never leak their cause.
func Public(err error) (string, []Detail) {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind == Internal {
		return "Server error", nil
	}
	return appErr.Message, appErr.Details
}
