// Package handler turns typed request handlers into http.HandlerFunc values.
//
// A route is a HandlerFunc[C, R]: the request struct R is filled by binders
// from pkg/binder, the handler returns a Response, and any error (binding,
// domain or rendering) is passed to a single ErrorHandler that writes the
// JSON envelope
//
//	{"error": {"code": "...", "message": "...", "details": {...}}}
//
// Domain errors are translated by ErrorMapper functions supplied by the
// module that owns them. Unmapped errors become 500 internal_error and the
// underlying error is only logged.
package handler
