package oauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore remembers issued states until they are consumed or expire.
type StateStore interface {
	Save(ctx context.Context, state, provider string, ttl time.Duration) error
	// Consume removes state and returns the provider it was issued for.
	// Unknown, expired and already consumed states yield ErrInvalidState.
	Consume(ctx context.Context, state string) (string, error)
}

// MemoryStateStore is an in-process StateStore for single-replica
// deployments and tests.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
	now    func() time.Time
}

type memoryState struct {
	provider  string
	expiresAt time.Time
}

// NewMemoryStateStore returns a process-local StateStore. Use it in tests
// or single-instance deployments; states do not survive a restart.
func NewMemoryStateStore(now func() time.Time) *MemoryStateStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStateStore{states: map[string]memoryState{}, now: now}
}

// Save records state for provider until ttl elapses.
func (s *MemoryStateStore) Save(_ context.Context, state, provider string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.states {
		if !now.Before(v.expiresAt) {
			delete(s.states, k)
		}
	}
	s.states[state] = memoryState{provider: provider, expiresAt: now.Add(ttl)}
	return nil
}

// Consume deletes state and returns its provider. Expired or unknown states
// return ErrInvalidState.
func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.states[state]
	if !ok {
		return "", ErrInvalidState
	}
	delete(s.states, state)
	if !s.now().Before(v.expiresAt) {
		return "", ErrInvalidState
	}
	return v.provider, nil
}

// RedisStateStore keeps states as expiring keys. GETDEL makes consumption
// atomic across replicas.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore keeps states in Redis under prefix so any instance can
// finish a flow started on another.
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix}
}

// Save stores state with a TTL so abandoned flows expire on their own.
func (s *RedisStateStore) Save(ctx context.Context, state, provider string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+state, provider, ttl).Err(); err != nil {
		return errors.Join(ErrStateStore, err)
	}
	return nil
}

// Consume uses GETDEL so a state can be redeemed exactly once, even when
// the callback is replayed against two instances at the same time.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	provider, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", errors.Join(ErrStateStore, err)
	}
	return provider, nil
}
