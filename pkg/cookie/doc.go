// Package cookie writes HTTP cookies with secure defaults (HttpOnly, Secure,
// SameSite=Lax) and optional HMAC-SHA256 signatures.
//
// Signing secrets rotate: the first secret signs new values while every
// configured secret is accepted on read. Signatures cover the cookie name,
// so a value signed for one cookie is rejected under another.
//
//	m, err := cookie.NewFromConfig(cfg)
//	m.Set(w, "refresh_token", tok, cookie.WithPath("/auth"), cookie.WithTTL(ttl))
//	m.SetSigned(w, "oauth_state", state, cookie.WithTTL(10*time.Minute))
//	state, err := m.GetSigned(r, "oauth_state")
package cookie
