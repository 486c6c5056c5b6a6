package cookie

import (
	"net/http"
	"time"
)

// Options are the attributes written with a cookie.
type Options struct {
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// Option overrides a single cookie attribute.
type Option func(*Options)

// WithPath scopes the cookie to path. Refresh cookies use it so the token
// is only sent to the endpoints that consume it.
func WithPath(path string) Option {
	return func(o *Options) { o.Path = path }
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(o *Options) { o.Domain = domain }
}

// WithTTL sets Max-Age, rounded down to whole seconds.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) { o.MaxAge = int(ttl / time.Second) }
}

// WithSecure sets the Secure attribute.
func WithSecure(secure bool) Option {
	return func(o *Options) { o.Secure = secure }
}

// WithHTTPOnly hides the cookie from scripts.
func WithHTTPOnly(httpOnly bool) Option {
	return func(o *Options) { o.HttpOnly = httpOnly }
}

// WithSameSite sets the SameSite mode.
func WithSameSite(sameSite http.SameSite) Option {
	return func(o *Options) { o.SameSite = sameSite }
}

// applyOptions copies base before applying opts; Options holds no references.
func applyOptions(base Options, opts []Option) Options {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}
