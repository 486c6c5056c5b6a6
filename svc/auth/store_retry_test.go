package auth_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/svc/auth"
)

// flakyStore fails the first failures calls to GetUserByEmail and WithTx.
type flakyStore struct {
	*auth.MemoryStore
	failures int32
	err      error
	calls    atomic.Int32
}

func (s *flakyStore) fail() error {
	if s.calls.Add(1) <= s.failures {
		return s.err
	}
	return nil
}

func (s *flakyStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.MemoryStore.GetUserByEmail(ctx, email)
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(ctx context.Context, q auth.Queries) error) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.WithTx(ctx, fn)
}

func TestRetryStore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fast := auth.WithRetryDelay(time.Millisecond, 5*time.Millisecond)

	t.Run("retries unavailable store", func(t *testing.T) {
		t.Parallel()
		inner := &flakyStore{MemoryStore: auth.NewMemoryStore(), failures: 2, err: auth.ErrStoreUnavailable}
		require.NoError(t, inner.MemoryStore.CreateUser(context.Background(), newUser("a@x.com", now)))

		s := auth.NewRetryStore(inner, fast)
		u, err := s.GetUserByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", u.Email)
		assert.Equal(t, int32(3), inner.calls.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		inner := &flakyStore{MemoryStore: auth.NewMemoryStore(), failures: 100, err: auth.ErrStoreUnavailable}

		s := auth.NewRetryStore(inner, fast, auth.WithRetryAttempts(2))
		_, err := s.GetUserByEmail(context.Background(), "a@x.com")
		assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
		assert.Equal(t, int32(3), inner.calls.Load())
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		t.Parallel()
		inner := &flakyStore{MemoryStore: auth.NewMemoryStore()}

		s := auth.NewRetryStore(inner, fast)
		_, err := s.GetUserByEmail(context.Background(), "missing@x.com")
		assert.ErrorIs(t, err, auth.ErrRecordNotFound)
		assert.Equal(t, int32(1), inner.calls.Load())
	})

	t.Run("transaction is retried as a whole", func(t *testing.T) {
		t.Parallel()
		inner := &flakyStore{MemoryStore: auth.NewMemoryStore(), failures: 1, err: auth.ErrStoreUnavailable}

		s := auth.NewRetryStore(inner, fast)
		runs := 0
		err := s.WithTx(context.Background(), func(ctx context.Context, q auth.Queries) error {
			runs++
			return q.CreateUser(ctx, newUser("a@x.com", now))
		})
		require.NoError(t, err)
		assert.Equal(t, 1, runs)

		_, err = inner.MemoryStore.GetUserByEmail(context.Background(), "a@x.com")
		assert.NoError(t, err)
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		t.Parallel()
		inner := &flakyStore{MemoryStore: auth.NewMemoryStore(), failures: 100, err: auth.ErrStoreUnavailable}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := auth.NewRetryStore(inner, auth.WithRetryDelay(time.Second, time.Second))
		_, err := s.GetUserByEmail(ctx, "a@x.com")
		assert.Error(t, err)
		assert.LessOrEqual(t, inner.calls.Load(), int32(1))
	})
}
