package handler

import (
	"context"
	"net/http"
	"time"
)

// Context carries the request and response writer alongside the request's
// context.Context, so handlers can pass it straight to service calls.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
}

// NewContext wraps a request and its writer. The request context drives
// cancellation.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{w: w, r: r}
}

type httpContext struct {
	w http.ResponseWriter
	r *http.Request
}

func (c *httpContext) Request() *http.Request              { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }

func (c *httpContext) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c *httpContext) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c *httpContext) Err() error                  { return c.r.Context().Err() }
func (c *httpContext) Value(key any) any           { return c.r.Context().Value(key) }

// ContextKey is a typed context key. Create one per value as a package variable.
type ContextKey struct{ name string }

func (c *ContextKey) String() string { return c.name }

// NewContextKey returns a unique key for context values.
func NewContextKey(name string) *ContextKey { return &ContextKey{name} }

// ContextValue returns the value stored under key, or the zero T.
func ContextValue[T any](ctx context.Context, key any) T {
	val, _ := ctx.Value(key).(T)
	return val
}

// ContextValueOK is ContextValue that also reports presence.
func ContextValueOK[T any](ctx context.Context, key any) (T, bool) {
	val, ok := ctx.Value(key).(T)
	return val, ok
}
