// Package jwt signs and verifies HS256 JSON Web Tokens.
//
// It is a thin layer over github.com/golang-jwt/jwt/v5 that fixes the
// signing method, enforces issuer, audience and expiration checks, and
// collapses the library's error zoo into ErrInvalidToken and
// ErrExpiredToken.
//
//	svc, err := jwt.New([]byte(secret), jwt.WithIssuer("authsvc"), jwt.WithAudience("authsvc"))
//	signed, err := svc.Generate(&claims)
//	err = svc.Parse(signed, &claims)
package jwt
