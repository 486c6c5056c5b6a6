package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/svc/auth"
)

func newUser(email string, now time.Time) *auth.User {
	return &auth.User{
		ID:        uuid.New(),
		Email:     email,
		Role:      auth.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		ctx := context.Background()
		u := newUser("a@x.com", now)
		boom := errors.New("boom")

		err := s.WithTx(ctx, func(ctx context.Context, q auth.Queries) error {
			require.NoError(t, q.CreateUser(ctx, u))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = s.GetUserByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, auth.ErrRecordNotFound)
	})

	t.Run("duplicates", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		ctx := context.Background()
		u := newUser("a@x.com", now)
		require.NoError(t, s.CreateUser(ctx, u))

		assert.ErrorIs(t, s.CreateUser(ctx, newUser("a@x.com", now)), auth.ErrDuplicateRecord)

		tok := &auth.OneTimeToken{ID: uuid.New(), UserID: u.ID, TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
		require.NoError(t, s.CreateEmailToken(ctx, tok))
		assert.ErrorIs(t, s.CreateEmailToken(ctx, tok), auth.ErrDuplicateRecord)
	})

	t.Run("tokens require an existing user", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		tok := &auth.OneTimeToken{ID: uuid.New(), UserID: uuid.New(), TokenHash: "h", ExpiresAt: now.Add(time.Hour)}
		assert.ErrorIs(t, s.CreateResetToken(context.Background(), tok), auth.ErrRecordNotFound)
	})

	t.Run("consume is single use and respects expiry", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		ctx := context.Background()
		u := newUser("a@x.com", now)
		require.NoError(t, s.CreateUser(ctx, u))
		require.NoError(t, s.CreateResetToken(ctx, &auth.OneTimeToken{
			ID: uuid.New(), UserID: u.ID, TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
		}))

		_, err := s.ConsumeResetToken(ctx, "h", now.Add(2*time.Hour))
		assert.ErrorIs(t, err, auth.ErrRecordNotFound)

		tok, err := s.ConsumeResetToken(ctx, "h", now)
		require.NoError(t, err)
		assert.True(t, tok.Used)
		assert.Equal(t, u.ID, tok.UserID)

		_, err = s.ConsumeResetToken(ctx, "h", now)
		assert.ErrorIs(t, err, auth.ErrRecordNotFound)
	})

	t.Run("concurrent revoke has one winner", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		ctx := context.Background()
		u := newUser("a@x.com", now)
		require.NoError(t, s.CreateUser(ctx, u))
		require.NoError(t, s.CreateRefreshToken(ctx, &auth.RefreshToken{
			ID: uuid.New(), UserID: u.ID, TokenHash: "r", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
		}))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.RevokeRefreshToken(ctx, "r", now); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("revoke all skips revoked tokens", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		ctx := context.Background()
		u := newUser("a@x.com", now)
		require.NoError(t, s.CreateUser(ctx, u))
		for _, h := range []string{"r1", "r2", "r3"} {
			require.NoError(t, s.CreateRefreshToken(ctx, &auth.RefreshToken{
				ID: uuid.New(), UserID: u.ID, TokenHash: h, ExpiresAt: now.Add(time.Hour), CreatedAt: now,
			}))
		}
		_, err := s.RevokeRefreshToken(ctx, "r1", now)
		require.NoError(t, err)

		n, err := s.RevokeUserRefreshTokens(ctx, u.ID, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("single superuser", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		ctx := context.Background()
		a, b := newUser("a@x.com", now), newUser("b@x.com", now)
		require.NoError(t, s.CreateUser(ctx, a))
		require.NoError(t, s.CreateUser(ctx, b))

		require.NoError(t, s.SetUserRole(ctx, a.ID, auth.RoleSuperuser, now))
		require.NoError(t, s.SetUserRole(ctx, a.ID, auth.RoleSuperuser, now), "reassigning the holder is allowed")
		assert.ErrorIs(t, s.SetUserRole(ctx, b.ID, auth.RoleSuperuser, now), auth.ErrDuplicateRecord)

		c := newUser("c@x.com", now)
		c.Role = auth.RoleSuperuser
		assert.ErrorIs(t, s.CreateUser(ctx, c), auth.ErrDuplicateRecord)
	})

	t.Run("purge", func(t *testing.T) {
		t.Parallel()
		s := auth.NewMemoryStore()
		ctx := context.Background()
		u := newUser("a@x.com", now)
		require.NoError(t, s.CreateUser(ctx, u))

		require.NoError(t, s.CreateEmailToken(ctx, &auth.OneTimeToken{
			ID: uuid.New(), UserID: u.ID, TokenHash: "expired", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
		}))
		require.NoError(t, s.CreateEmailToken(ctx, &auth.OneTimeToken{
			ID: uuid.New(), UserID: u.ID, TokenHash: "fresh", ExpiresAt: now.Add(30 * 24 * time.Hour), CreatedAt: now,
		}))
		require.NoError(t, s.CreateRefreshToken(ctx, &auth.RefreshToken{
			ID: uuid.New(), UserID: u.ID, TokenHash: "active", ExpiresAt: now.Add(30 * 24 * time.Hour), CreatedAt: now,
		}))

		n, err := s.PurgeTokens(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.ConsumeEmailToken(ctx, "fresh", now)
		assert.NoError(t, err)
		_, err = s.RevokeRefreshToken(ctx, "active", now)
		assert.NoError(t, err)
	})
}
