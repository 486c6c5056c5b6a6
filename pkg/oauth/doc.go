// Package oauth runs the authorization-code flow against Google and GitHub.
//
// Manager issues a random state, remembers it in a StateStore for a short
// TTL and builds the provider redirect. On callback it consumes the state
// (single use), exchanges the code through golang.org/x/oauth2 and resolves
// the provider profile into a Profile with a verified email address.
package oauth
