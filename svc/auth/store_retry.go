package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

// RetryStore decorates a Store and retries calls that fail with
// ErrStoreUnavailable using exponential backoff with jitter. Other errors,
// including ErrRecordNotFound and ErrDuplicateRecord, are returned at once.
//
// WithTx retries the whole transaction. Queries passed to the transaction
// function are not retried individually.
type RetryStore struct {
	next      Store
	attempts  uint64
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *slog.Logger
}

var _ Store = (*RetryStore)(nil)

// RetryOption configures a RetryStore.
type RetryOption func(*RetryStore)

// WithRetryAttempts sets how many times a failed call is retried.
func WithRetryAttempts(n uint64) RetryOption {
	return func(s *RetryStore) { s.attempts = n }
}

// WithRetryDelay sets the initial and maximum backoff delays.
func WithRetryDelay(base, max time.Duration) RetryOption {
	return func(s *RetryStore) {
		if base > 0 {
			s.baseDelay = base
		}
		if max >= base {
			s.maxDelay = max
		}
	}
}

// WithRetryLogger logs each retried attempt.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(s *RetryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRetryStore wraps next. Defaults: 3 retries, 50ms initial delay, 1s cap.
func NewRetryStore(next Store, opts ...RetryOption) *RetryStore {
	s := &RetryStore{
		next:      next,
		attempts:  3,
		baseDelay: 50 * time.Millisecond,
		maxDelay:  time.Second,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RetryStore) backoff() retry.Backoff {
	b := retry.NewExponential(s.baseDelay)
	b = retry.WithCappedDuration(s.maxDelay, b)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(s.attempts, b)
}

func (s *RetryStore) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || !errors.Is(err, ErrStoreUnavailable) {
			return err
		}
		attempt++
		s.logger.WarnContext(ctx, "store call failed, retrying",
			slog.String("op", op),
			logger.RetryCount(attempt),
			logger.Error(err),
			logger.Component("auth.store"),
		)
		return retry.RetryableError(err)
	})
}

func retryValue[T any](ctx context.Context, s *RetryStore, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// WithTx retries the whole transaction. fn may run more than once, so it
// must not have side effects outside q.
func (s *RetryStore) WithTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	return s.do(ctx, "tx", func(ctx context.Context) error {
		return s.next.WithTx(ctx, fn)
	})
}

func (s *RetryStore) CreateUser(ctx context.Context, u *User) error {
	return s.do(ctx, "create_user", func(ctx context.Context) error { return s.next.CreateUser(ctx, u) })
}

func (s *RetryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return retryValue(ctx, s, "get_user_by_id", func(ctx context.Context) (*User, error) {
		return s.next.GetUserByID(ctx, id)
	})
}

func (s *RetryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return retryValue(ctx, s, "get_user_by_email", func(ctx context.Context) (*User, error) {
		return s.next.GetUserByEmail(ctx, email)
	})
}

func (s *RetryStore) MarkEmailVerified(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.do(ctx, "mark_email_verified", func(ctx context.Context) error {
		return s.next.MarkEmailVerified(ctx, id, now)
	})
}

func (s *RetryStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error {
	return s.do(ctx, "update_password_hash", func(ctx context.Context) error {
		return s.next.UpdatePasswordHash(ctx, id, hash, now)
	})
}

func (s *RetryStore) UpdateUserName(ctx context.Context, id uuid.UUID, name string, now time.Time) error {
	return s.do(ctx, "update_user_name", func(ctx context.Context) error {
		return s.next.UpdateUserName(ctx, id, name, now)
	})
}

func (s *RetryStore) UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string, now time.Time) error {
	return s.do(ctx, "update_user_avatar", func(ctx context.Context) error {
		return s.next.UpdateUserAvatar(ctx, id, avatarURL, now)
	})
}

func (s *RetryStore) SetUserRole(ctx context.Context, id uuid.UUID, role Role, now time.Time) error {
	return s.do(ctx, "set_user_role", func(ctx context.Context) error {
		return s.next.SetUserRole(ctx, id, role, now)
	})
}

func (s *RetryStore) CountUsersByRole(ctx context.Context, role Role) (int, error) {
	return retryValue(ctx, s, "count_users_by_role", func(ctx context.Context) (int, error) {
		return s.next.CountUsersByRole(ctx, role)
	})
}

func (s *RetryStore) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	users, err := retryValue(ctx, s, "list_users", func(ctx context.Context) ([]User, error) {
		var (
			users []User
			err   error
		)
		users, total, err = s.next.ListUsers(ctx, limit, offset)
		return users, err
	})
	return users, total, err
}

func (s *RetryStore) CreateEmailToken(ctx context.Context, t *OneTimeToken) error {
	return s.do(ctx, "create_email_token", func(ctx context.Context) error { return s.next.CreateEmailToken(ctx, t) })
}

func (s *RetryStore) ConsumeEmailToken(ctx context.Context, hash string, now time.Time) (*OneTimeToken, error) {
	return retryValue(ctx, s, "consume_email_token", func(ctx context.Context) (*OneTimeToken, error) {
		return s.next.ConsumeEmailToken(ctx, hash, now)
	})
}

func (s *RetryStore) CreateResetToken(ctx context.Context, t *OneTimeToken) error {
	return s.do(ctx, "create_reset_token", func(ctx context.Context) error { return s.next.CreateResetToken(ctx, t) })
}

func (s *RetryStore) ConsumeResetToken(ctx context.Context, hash string, now time.Time) (*OneTimeToken, error) {
	return retryValue(ctx, s, "consume_reset_token", func(ctx context.Context) (*OneTimeToken, error) {
		return s.next.ConsumeResetToken(ctx, hash, now)
	})
}

func (s *RetryStore) CreateRefreshToken(ctx context.Context, t *RefreshToken) error {
	return s.do(ctx, "create_refresh_token", func(ctx context.Context) error { return s.next.CreateRefreshToken(ctx, t) })
}

func (s *RetryStore) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (*RefreshToken, error) {
	return retryValue(ctx, s, "revoke_refresh_token", func(ctx context.Context) (*RefreshToken, error) {
		return s.next.RevokeRefreshToken(ctx, hash, now)
	})
}

func (s *RetryStore) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return retryValue(ctx, s, "revoke_user_refresh_tokens", func(ctx context.Context) (int64, error) {
		return s.next.RevokeUserRefreshTokens(ctx, userID, now)
	})
}

func (s *RetryStore) GetIdentity(ctx context.Context, provider, providerUserID string) (*Identity, error) {
	return retryValue(ctx, s, "get_identity", func(ctx context.Context) (*Identity, error) {
		return s.next.GetIdentity(ctx, provider, providerUserID)
	})
}

func (s *RetryStore) GetUserIdentity(ctx context.Context, userID uuid.UUID, provider string) (*Identity, error) {
	return retryValue(ctx, s, "get_user_identity", func(ctx context.Context) (*Identity, error) {
		return s.next.GetUserIdentity(ctx, userID, provider)
	})
}

func (s *RetryStore) ListUserIdentities(ctx context.Context, userID uuid.UUID) ([]Identity, error) {
	return retryValue(ctx, s, "list_user_identities", func(ctx context.Context) ([]Identity, error) {
		return s.next.ListUserIdentities(ctx, userID)
	})
}

func (s *RetryStore) CreateIdentity(ctx context.Context, i *Identity) error {
	return s.do(ctx, "create_identity", func(ctx context.Context) error { return s.next.CreateIdentity(ctx, i) })
}

func (s *RetryStore) UpdateIdentity(ctx context.Context, i *Identity) error {
	return s.do(ctx, "update_identity", func(ctx context.Context) error { return s.next.UpdateIdentity(ctx, i) })
}

func (s *RetryStore) PurgeTokens(ctx context.Context, before time.Time) (int64, error) {
	return retryValue(ctx, s, "purge_tokens", func(ctx context.Context) (int64, error) {
		return s.next.PurgeTokens(ctx, before)
	})
}
