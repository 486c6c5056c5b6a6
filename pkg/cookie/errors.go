package cookie

import "errors"

var (
	ErrNoSecret         = errors.New("cookie: at least one secret is required")
	ErrSecretTooShort   = errors.New("cookie: secret must be at least 32 bytes")
	ErrInvalidConfig    = errors.New("cookie: invalid config")
	ErrInvalidSignature = errors.New("cookie: signature mismatch")
	ErrCookieNotFound   = errors.New("cookie: not found")
	ErrInvalidFormat    = errors.New("cookie: malformed signed value")
)
