// Package clientip resolves the address of the client behind an HTTP request.
//
// Forwarding headers (CF-Connecting-IP, X-Real-IP, X-Forwarded-For) are only
// consulted when the direct peer is a configured trusted proxy. Requests from
// anywhere else are attributed to RemoteAddr.
//
//	res, err := clientip.NewResolver(clientip.Config{TrustedProxies: []string{"10.0.0.0/8"}})
//	r.Use(res.Middleware)
//	ip := clientip.FromContext(req.Context())
package clientip
