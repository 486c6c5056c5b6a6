package password

import "errors"

var (
	ErrMalformedHash       = errors.New("password: malformed hash")
	ErrIncompatibleVersion = errors.New("password: incompatible argon2 version")
	ErrEmptyPassword       = errors.New("password: empty password")
)
