package token

import "errors"

var (
	ErrEmptyInput    = errors.New("token: input must not be empty")
	ErrEmptySecret   = errors.New("token: hmac secret must not be empty")
	ErrInvalidLength = errors.New("token: length must be positive")
	ErrRandomSource  = errors.New("token: failed to read random bytes")
)
