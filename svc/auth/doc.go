// Package auth implements the credential core of the service: signup, email
// verification, login, refresh-token rotation, logout, password reset, OAuth
// account linking, profile updates and admin role management.
//
// Service composes four primitives passed in at construction: a TokenCodec
// for signed access and refresh tokens, a SecretHasher for the HMAC digests
// of opaque tokens, a PasswordHasher (argon2id) and a Cipher for OAuth
// provider tokens at rest. Persistence goes through Store, whose WithTx
// delimits every multi-row state change.
//
// Every error returned by Service wraps exactly one of ErrValidation,
// ErrAuthentication, ErrAuthorization, ErrNotFound, ErrConflict or
// ErrDecryption, or is an internal failure. Callers classify with errors.Is.
package auth
