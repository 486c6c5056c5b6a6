// Package binder decodes HTTP requests into Go structs.
//
//   - JSON: strict single-object bodies with a size cap; unknown fields fail.
//   - Query: `query` tagged fields from the URL query string.
//   - File: multipart uploads with `form` and `file` tags and a body cap.
//
// Every binder has the signature func(*http.Request, any) error and reports
// failures wrapped in one of the package sentinels so callers can map them
// to HTTP status codes.
package binder
