// Package account exposes the authentication service over HTTP.
//
// Module mounts the public credential endpoints under /auth, the
// authenticated user's endpoints under /me and role management under
// /admin. Bodies are JSON; errors use the handler envelope with a stable
// code per failure. Sessions are returned in the body and the refresh token
// is also set as an HttpOnly cookie scoped to /auth, which /auth/refresh and
// /auth/logout accept in place of a body.
//
// Credential endpoints are rate limited per client address when a limiter
// is configured. OAuth routes answer 404 for providers that are not set up.
package account
