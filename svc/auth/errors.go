package auth

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by Service wraps one of these,
// except internal failures.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrDecryption     = errors.New("decryption error")
)

var (
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", ErrAuthentication)
	ErrEmailNotVerified    = fmt.Errorf("%w: email address is not verified", ErrAuthentication)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", ErrAuthentication)
	ErrInvalidAccessToken  = fmt.Errorf("%w: invalid access token", ErrAuthentication)

	ErrInsufficientRole = fmt.Errorf("%w: insufficient role", ErrAuthorization)
	ErrSelfRoleChange   = fmt.Errorf("%w: cannot change own role", ErrAuthorization)

	ErrTokenNotFound    = fmt.Errorf("%w: invalid or expired token", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrIdentityNotFound = fmt.Errorf("%w: identity not found", ErrNotFound)

	ErrEmailTaken      = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrIdentityLinked  = fmt.Errorf("%w: provider account already linked", ErrConflict)
	ErrRoleUnchanged   = fmt.Errorf("%w: user already has this role", ErrConflict)
	ErrSuperuserExists = fmt.Errorf("%w: a superuser already exists", ErrConflict)
)

// Store errors. Implementations of Store return these; Service translates
// them into the categories above.
var (
	ErrRecordNotFound   = errors.New("store: record not found")
	ErrDuplicateRecord  = errors.New("store: duplicate record")
	ErrStoreUnavailable = errors.New("store: unavailable")
)

func validationError(err error) error {
	return errors.Join(ErrValidation, err)
}
