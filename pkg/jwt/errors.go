package jwt

import "errors"

var (
	ErrMissingSigningKey = errors.New("jwt: signing key is required")
	ErrMissingClaims     = errors.New("jwt: claims are required")
	ErrInvalidToken      = errors.New("jwt: invalid token")
	ErrExpiredToken      = errors.New("jwt: token expired")
)
