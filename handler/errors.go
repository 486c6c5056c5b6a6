package handler

import (
	"errors"
	"net/http"
)

// ErrNilResponse is reported when a handler returns neither a response nor
// an error.
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError is an error with a response status and a stable machine code.
// Message is shown to clients; Err is only logged.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details map[string][]string
	Err     error
}

// Error prefixes the code to the wrapped error, or to Message when there
// is none.
func (e HTTPError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e HTTPError) Unwrap() error { return e.Err }

// NewHTTPError builds an HTTPError whose message defaults to the status text.
func NewHTTPError(status int, code string, err error) HTTPError {
	return HTTPError{
		Status:  status,
		Code:    code,
		Message: http.StatusText(status),
		Err:     err,
	}
}

// WithMessage returns a copy of e with a client facing message.
func (e HTTPError) WithMessage(msg string) HTTPError {
	e.Message = msg
	return e
}

// WithDetails returns a copy of e with per-field details.
func (e HTTPError) WithDetails(details map[string][]string) HTTPError {
	e.Details = details
	return e
}

var (
	ErrNotFound         = HTTPError{Status: http.StatusNotFound, Code: "not_found", Message: "Resource not found"}
	ErrMethodNotAllowed = HTTPError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Message: "Method not allowed"}
	ErrTooManyRequests  = HTTPError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "Too many requests"}
)
