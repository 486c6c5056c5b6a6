package ratelimiter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0), ratelimiter.WithClock(clk.Now))
	t.Cleanup(store.Close)
	b, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	return b, clk
}

func TestNewBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config ratelimiter.Config
		errMsg string
	}{
		{"valid", ratelimiter.Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Second}, ""},
		{"zero capacity", ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}, "capacity must be positive"},
		{"zero refill rate", ratelimiter.Config{Capacity: 5, RefillInterval: time.Second}, "refill rate must be positive"},
		{"zero interval", ratelimiter.Config{Capacity: 5, RefillRate: 1}, "refill interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), tt.config)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestBucket(t *testing.T) {
	t.Parallel()

	cfg := ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute}

	t.Run("drains then denies without debt", func(t *testing.T) {
		t.Parallel()
		b, clk := newLimiter(t, cfg)
		ctx := context.Background()

		for i := range 3 {
			res, err := b.Allow(ctx, "ip")
			require.NoError(t, err)
			assert.True(t, res.Allowed())
			assert.Equal(t, 2-i, res.Remaining)
		}
		for range 5 {
			res, err := b.Allow(ctx, "ip")
			require.NoError(t, err)
			assert.False(t, res.Allowed())
			assert.Equal(t, time.Minute, res.RetryAfter(clk.Now()))
		}

		clk.Advance(time.Minute)
		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("refill is capped", func(t *testing.T) {
		t.Parallel()
		b, clk := newLimiter(t, cfg)
		ctx := context.Background()

		_, err := b.AllowN(ctx, "ip", 3)
		require.NoError(t, err)
		clk.Advance(24 * time.Hour)

		res, err := b.Status(ctx, "ip")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()
		b, _ := newLimiter(t, cfg)
		ctx := context.Background()

		_, err := b.AllowN(ctx, "a", 3)
		require.NoError(t, err)
		res, err := b.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed())

		require.NoError(t, b.Reset(ctx, "a"))
		res, err = b.Allow(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)
	})

	t.Run("rejects non-positive n", func(t *testing.T) {
		t.Parallel()
		b, _ := newLimiter(t, cfg)
		_, err := b.AllowN(context.Background(), "ip", 0)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	})

	t.Run("concurrent callers share the bucket", func(t *testing.T) {
		t.Parallel()
		b, _ := newLimiter(t, ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Hour})

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := b.Allow(context.Background(), "ip")
				if err == nil && res.Allowed() {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, allowed)
	})
}

func TestMemoryStore_RemoveIdle(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Now()}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0), ratelimiter.WithClock(clk.Now))
	defer store.Close()
	cfg := ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second}

	_, _, err := store.ConsumeTokens(context.Background(), "old", 1, cfg)
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)
	_, _, err = store.ConsumeTokens(context.Background(), "new", 1, cfg)
	require.NoError(t, err)

	store.RemoveIdle(time.Hour)
	assert.Equal(t, 1, store.Len())
	store.Close()
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*ratelimiter.Result, error) {
	return nil, errors.New("store down")
}

func (failingLimiter) AllowN(context.Context, string, int) (*ratelimiter.Result, error) {
	return nil, errors.New("store down")
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	byAddr := func(r *http.Request) string { return r.RemoteAddr }

	t.Run("limits per key", func(t *testing.T) {
		t.Parallel()
		b, _ := newLimiter(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
		h := ratelimiter.Middleware(b, byAddr, ratelimiter.WithLimitedHandler(func(w http.ResponseWriter, _ *http.Request, res *ratelimiter.Result) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
		}))(ok)

		codes := make([]int, 0, 3)
		var last *httptest.ResponseRecorder
		for range 3 {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			last = httptest.NewRecorder()
			h.ServeHTTP(last, req)
			codes = append(codes, last.Code)
		}
		assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
		assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, last.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"error":"slow down"}`, last.Body.String())

		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("empty key skips limiting", func(t *testing.T) {
		t.Parallel()
		h := ratelimiter.Middleware(failingLimiter{}, func(*http.Request) string { return "" })(ok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("store failure fails open by default", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		ratelimiter.Middleware(failingLimiter{}, byAddr)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("custom error handler", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		ratelimiter.Middleware(failingLimiter{}, byAddr, ratelimiter.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, _ error) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestComposite(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4"

	key := ratelimiter.Composite(ratelimiter.Static("login"), func(r *http.Request) string { return r.RemoteAddr })(req)
	assert.Equal(t, "login:1.2.3.4", key)

	long := ratelimiter.Composite(ratelimiter.Static(string(make([]byte, 80))))(req)
	assert.LessOrEqual(t, len(long), 13)
	assert.Empty(t, ratelimiter.Composite()(req))
}
