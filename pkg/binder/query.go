package binder

import "net/http"

// Query binds URL query parameters to the `query` tagged fields of a struct.
// Missing parameters leave the field untouched so callers can preset defaults.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrInvalidQuery)
	}
}
