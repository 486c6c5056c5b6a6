package clientip

import "net/http"

// Middleware stores the resolved client address in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), res.IP(r))))
	})
}

// Key returns the client address for use as a rate limit key. It prefers the
// value placed by Middleware and resolves directly otherwise.
func (res *Resolver) Key(r *http.Request) string {
	if ip := FromContext(r.Context()); ip != "" {
		return ip
	}
	return res.IP(r)
}
