package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/authsvc/pkg/binder"
	"github.com/dmitrymomot/authsvc/pkg/logger"
)

// ErrorMapper translates a domain error into an HTTPError. It reports false
// for errors it does not recognise so the next mapper can try.
type ErrorMapper func(err error) (HTTPError, bool)

var internalError = HTTPError{
	Status:  http.StatusInternalServerError,
	Code:    "internal_error",
	Message: "An internal error occurred",
}

// Classify resolves err to the HTTPError that will be sent. An HTTPError in
// the chain wins, then binder failures, then the mappers in order.
// Anything else becomes a 500 with a generic message.
func Classify(err error, mappers ...ErrorMapper) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if mapped, ok := mapBinderError(err); ok {
		return mapped
	}
	for _, m := range mappers {
		if mapped, ok := m(err); ok {
			if mapped.Err == nil {
				mapped.Err = err
			}
			return mapped
		}
	}
	e := internalError
	e.Err = err
	return e
}

func mapBinderError(err error) (HTTPError, bool) {
	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return NewHTTPError(http.StatusUnsupportedMediaType, "unsupported_media_type", err), true
	case errors.Is(err, binder.ErrBodyTooLarge):
		return NewHTTPError(http.StatusRequestEntityTooLarge, "body_too_large", err), true
	case errors.Is(err, binder.ErrInvalidJSON), errors.Is(err, binder.ErrInvalidForm), errors.Is(err, binder.ErrInvalidQuery):
		return NewHTTPError(http.StatusBadRequest, "bad_request", err).WithMessage(err.Error()), true
	}
	return HTTPError{}, false
}

// NewErrorHandler returns an ErrorHandler that writes the JSON error
// envelope. 5xx responses are logged at error level, everything else at
// debug.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	return func(ctx Context, err error) {
		WriteError(log, ctx.ResponseWriter(), ctx.Request(), err, mappers...)
	}
}

// WriteError classifies err and writes it. Middleware outside Wrap uses it
// directly.
func WriteError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error, mappers ...ErrorMapper) {
	if log == nil {
		log = logger.Discard()
	}
	e := Classify(err, mappers...)

	level := slog.LevelDebug
	if e.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.LogAttrs(r.Context(), level, "request failed",
		logger.Error(err),
		slog.Int("status", e.Status),
		slog.String("code", e.Code),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logger.Component("http"),
	)

	body := ErrorBody{Error: ErrorDetail{Code: e.Code, Message: e.Message, Details: e.Details}}
	if werr := writeJSON(w, e.Status, body); werr != nil {
		log.WarnContext(r.Context(), "write error response", logger.Error(werr))
	}
}
