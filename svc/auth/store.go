package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Queries is the persistence contract used inside and outside transactions.
//
// Lookups return ErrRecordNotFound when nothing matches. Inserts that
// violate a uniqueness constraint return ErrDuplicateRecord. Transient
// failures worth retrying return an error wrapping ErrStoreUnavailable.
type Queries interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID, now time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error
	// UpdateUserName and UpdateUserAvatar each touch a single column so
	// concurrent profile edits never overwrite each other.
	UpdateUserName(ctx context.Context, id uuid.UUID, name string, now time.Time) error
	UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string, now time.Time) error
	// SetUserRole returns ErrDuplicateRecord when role is RoleSuperuser and
	// another user already holds it.
	SetUserRole(ctx context.Context, id uuid.UUID, role Role, now time.Time) error
	CountUsersByRole(ctx context.Context, role Role) (int, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)

	CreateEmailToken(ctx context.Context, t *OneTimeToken) error
	// ConsumeEmailToken atomically marks the token with hash as used if it
	// is unused and unexpired at now, and returns it. Concurrent callers
	// with the same hash observe exactly one success.
	ConsumeEmailToken(ctx context.Context, hash string, now time.Time) (*OneTimeToken, error)
	CreateResetToken(ctx context.Context, t *OneTimeToken) error
	ConsumeResetToken(ctx context.Context, hash string, now time.Time) (*OneTimeToken, error)

	CreateRefreshToken(ctx context.Context, t *RefreshToken) error
	// RevokeRefreshToken atomically revokes the active token with hash and
	// returns it. Revoked, expired and unknown tokens yield ErrRecordNotFound.
	RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (*RefreshToken, error)
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)

	GetIdentity(ctx context.Context, provider, providerUserID string) (*Identity, error)
	GetUserIdentity(ctx context.Context, userID uuid.UUID, provider string) (*Identity, error)
	ListUserIdentities(ctx context.Context, userID uuid.UUID) ([]Identity, error)
	CreateIdentity(ctx context.Context, i *Identity) error
	UpdateIdentity(ctx context.Context, i *Identity) error

	// PurgeTokens deletes tokens that expired before the cutoff, and used or
	// revoked tokens created before it.
	PurgeTokens(ctx context.Context, before time.Time) (int64, error)
}

// Store is Queries plus a transaction primitive. The Queries passed to fn
// are bound to the transaction; fn must not use the Store directly. The
// transaction commits when fn returns nil and rolls back otherwise.
type Store interface {
	Queries
	WithTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}
