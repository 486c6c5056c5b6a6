package oauth

import "errors"

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrInvalidState    = errors.New("oauth: invalid or expired state")
	ErrInvalidCode     = errors.New("oauth: invalid authorization code")
	ErrUnverifiedEmail = errors.New("oauth: email not verified by provider")
	ErrNoEmail         = errors.New("oauth: provider returned no usable email")
	ErrProfileFetch    = errors.New("oauth: failed to fetch provider profile")
	ErrStateStore      = errors.New("oauth: state store unavailable")
)
