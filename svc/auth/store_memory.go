package auth

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. All operations, including whole
// transactions, are serialised by one mutex. A transaction works on a copy
// of the state that replaces the original only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Queries = (*memState)(nil)
)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// WithTx runs fn against a copy of the state and swaps it in only when fn
// succeeds. The store lock is held throughout, so transactions serialize.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateUser(ctx, u)
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetUserByID(ctx, id)
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetUserByEmail(ctx, email)
}

func (s *MemoryStore) MarkEmailVerified(ctx context.Context, id uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.MarkEmailVerified(ctx, id, now)
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdatePasswordHash(ctx, id, hash, now)
}

func (s *MemoryStore) UpdateUserName(ctx context.Context, id uuid.UUID, name string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateUserName(ctx, id, name, now)
}

func (s *MemoryStore) UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateUserAvatar(ctx, id, avatarURL, now)
}

func (s *MemoryStore) SetUserRole(ctx context.Context, id uuid.UUID, role Role, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetUserRole(ctx, id, role, now)
}

func (s *MemoryStore) CountUsersByRole(ctx context.Context, role Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountUsersByRole(ctx, role)
}

func (s *MemoryStore) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListUsers(ctx, limit, offset)
}

func (s *MemoryStore) CreateEmailToken(ctx context.Context, t *OneTimeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateEmailToken(ctx, t)
}

// ConsumeEmailToken holds the store lock, which gives the same single
// winner guarantee as the conditional UPDATE in Postgres.
func (s *MemoryStore) ConsumeEmailToken(ctx context.Context, hash string, now time.Time) (*OneTimeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ConsumeEmailToken(ctx, hash, now)
}

func (s *MemoryStore) CreateResetToken(ctx context.Context, t *OneTimeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateResetToken(ctx, t)
}

func (s *MemoryStore) ConsumeResetToken(ctx context.Context, hash string, now time.Time) (*OneTimeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ConsumeResetToken(ctx, hash, now)
}

func (s *MemoryStore) CreateRefreshToken(ctx context.Context, t *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateRefreshToken(ctx, t)
}

func (s *MemoryStore) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RevokeRefreshToken(ctx, hash, now)
}

func (s *MemoryStore) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RevokeUserRefreshTokens(ctx, userID, now)
}

func (s *MemoryStore) GetIdentity(ctx context.Context, provider, providerUserID string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetIdentity(ctx, provider, providerUserID)
}

func (s *MemoryStore) GetUserIdentity(ctx context.Context, userID uuid.UUID, provider string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetUserIdentity(ctx, userID, provider)
}

func (s *MemoryStore) ListUserIdentities(ctx context.Context, userID uuid.UUID) ([]Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListUserIdentities(ctx, userID)
}

func (s *MemoryStore) CreateIdentity(ctx context.Context, i *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateIdentity(ctx, i)
}

func (s *MemoryStore) UpdateIdentity(ctx context.Context, i *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateIdentity(ctx, i)
}

func (s *MemoryStore) PurgeTokens(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PurgeTokens(ctx, before)
}

type identityKey struct {
	provider       string
	providerUserID string
}

// memState holds the data. Its methods assume the caller holds the lock.
type memState struct {
	users         map[uuid.UUID]User
	emails        map[string]uuid.UUID
	emailTokens   map[string]OneTimeToken
	resetTokens   map[string]OneTimeToken
	refreshTokens map[string]RefreshToken
	identities    map[identityKey]Identity
}

func newMemState() *memState {
	return &memState{
		users:         map[uuid.UUID]User{},
		emails:        map[string]uuid.UUID{},
		emailTokens:   map[string]OneTimeToken{},
		resetTokens:   map[string]OneTimeToken{},
		refreshTokens: map[string]RefreshToken{},
		identities:    map[identityKey]Identity{},
	}
}

// clone copies the maps. Values are structs, and every write replaces the
// whole value, so a shallow copy isolates a transaction from the live state.
func (m *memState) clone() *memState {
	return &memState{
		users:         maps.Clone(m.users),
		emails:        maps.Clone(m.emails),
		emailTokens:   maps.Clone(m.emailTokens),
		resetTokens:   maps.Clone(m.resetTokens),
		refreshTokens: maps.Clone(m.refreshTokens),
		identities:    maps.Clone(m.identities),
	}
}

func (m *memState) CreateUser(_ context.Context, u *User) error {
	if _, ok := m.emails[u.Email]; ok {
		return ErrDuplicateRecord
	}
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicateRecord
	}
	if u.Role == RoleSuperuser {
		if n, _ := m.CountUsersByRole(context.Background(), RoleSuperuser); n > 0 {
			return ErrDuplicateRecord
		}
	}
	m.users[u.ID] = *u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *memState) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &u, nil
}

func (m *memState) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	id, ok := m.emails[email]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return m.GetUserByID(ctx, id)
}

func (m *memState) updateUser(id uuid.UUID, fn func(u *User)) error {
	u, ok := m.users[id]
	if !ok {
		return ErrRecordNotFound
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m *memState) MarkEmailVerified(_ context.Context, id uuid.UUID, now time.Time) error {
	return m.updateUser(id, func(u *User) {
		u.EmailVerified = true
		u.UpdatedAt = now
	})
}

func (m *memState) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string, now time.Time) error {
	return m.updateUser(id, func(u *User) {
		u.PasswordHash = hash
		u.UpdatedAt = now
	})
}

func (m *memState) UpdateUserName(_ context.Context, id uuid.UUID, name string, now time.Time) error {
	return m.updateUser(id, func(u *User) {
		u.Name = name
		u.UpdatedAt = now
	})
}

func (m *memState) UpdateUserAvatar(_ context.Context, id uuid.UUID, avatarURL string, now time.Time) error {
	return m.updateUser(id, func(u *User) {
		u.AvatarURL = avatarURL
		u.UpdatedAt = now
	})
}

func (m *memState) SetUserRole(_ context.Context, id uuid.UUID, role Role, now time.Time) error {
	if role == RoleSuperuser {
		for _, u := range m.users {
			if u.Role == RoleSuperuser && u.ID != id {
				return ErrDuplicateRecord
			}
		}
	}
	return m.updateUser(id, func(u *User) {
		u.Role = role
		u.UpdatedAt = now
	})
}

func (m *memState) CountUsersByRole(_ context.Context, role Role) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memState) ListUsers(_ context.Context, limit, offset int) ([]User, int, error) {
	all := slices.Collect(maps.Values(m.users))
	slices.SortFunc(all, func(a, b User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})
	total := len(all)
	if offset >= total {
		return []User{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func insertToken(tokens map[string]OneTimeToken, t *OneTimeToken) error {
	if _, ok := tokens[t.TokenHash]; ok {
		return ErrDuplicateRecord
	}
	tokens[t.TokenHash] = *t
	return nil
}

// consumeToken marks the token used and returns it. Used and expired tokens
// look the same as unknown ones.
func consumeToken(tokens map[string]OneTimeToken, hash string, now time.Time) (*OneTimeToken, error) {
	t, ok := tokens[hash]
	if !ok || !t.Valid(now) {
		return nil, ErrRecordNotFound
	}
	t.Used = true
	tokens[hash] = t
	return &t, nil
}

func (m *memState) CreateEmailToken(_ context.Context, t *OneTimeToken) error {
	if _, ok := m.users[t.UserID]; !ok {
		return ErrRecordNotFound
	}
	return insertToken(m.emailTokens, t)
}

func (m *memState) ConsumeEmailToken(_ context.Context, hash string, now time.Time) (*OneTimeToken, error) {
	return consumeToken(m.emailTokens, hash, now)
}

func (m *memState) CreateResetToken(_ context.Context, t *OneTimeToken) error {
	if _, ok := m.users[t.UserID]; !ok {
		return ErrRecordNotFound
	}
	return insertToken(m.resetTokens, t)
}

func (m *memState) ConsumeResetToken(_ context.Context, hash string, now time.Time) (*OneTimeToken, error) {
	return consumeToken(m.resetTokens, hash, now)
}

func (m *memState) CreateRefreshToken(_ context.Context, t *RefreshToken) error {
	if _, ok := m.users[t.UserID]; !ok {
		return ErrRecordNotFound
	}
	if _, ok := m.refreshTokens[t.TokenHash]; ok {
		return ErrDuplicateRecord
	}
	m.refreshTokens[t.TokenHash] = *t
	return nil
}

// RevokeRefreshToken only matches an active token, which makes it the
// single-winner step of rotation.
func (m *memState) RevokeRefreshToken(_ context.Context, hash string, now time.Time) (*RefreshToken, error) {
	t, ok := m.refreshTokens[hash]
	if !ok || !t.Active(now) {
		return nil, ErrRecordNotFound
	}
	t.Revoked = true
	t.RevokedAt = &now
	m.refreshTokens[hash] = t
	return &t, nil
}

func (m *memState) RevokeUserRefreshTokens(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	for hash, t := range m.refreshTokens {
		if t.UserID != userID || t.Revoked {
			continue
		}
		t.Revoked = true
		t.RevokedAt = &now
		m.refreshTokens[hash] = t
		n++
	}
	return n, nil
}

func (m *memState) GetIdentity(_ context.Context, provider, providerUserID string) (*Identity, error) {
	i, ok := m.identities[identityKey{provider, providerUserID}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &i, nil
}

func (m *memState) GetUserIdentity(_ context.Context, userID uuid.UUID, provider string) (*Identity, error) {
	var found *Identity
	for _, i := range m.identities {
		if i.UserID != userID || i.Provider != provider {
			continue
		}
		// Map order is random; match the store and return the oldest.
		if found == nil || i.CreatedAt.Before(found.CreatedAt) {
			found = &i
		}
	}
	if found == nil {
		return nil, ErrRecordNotFound
	}
	return found, nil
}

func (m *memState) ListUserIdentities(_ context.Context, userID uuid.UUID) ([]Identity, error) {
	var out []Identity
	for _, i := range m.identities {
		if i.UserID == userID {
			out = append(out, i)
		}
	}
	slices.SortFunc(out, func(a, b Identity) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *memState) CreateIdentity(_ context.Context, i *Identity) error {
	if _, ok := m.users[i.UserID]; !ok {
		return ErrRecordNotFound
	}
	key := identityKey{i.Provider, i.ProviderUserID}
	if _, ok := m.identities[key]; ok {
		return ErrDuplicateRecord
	}
	m.identities[key] = *i
	return nil
}

func (m *memState) UpdateIdentity(_ context.Context, i *Identity) error {
	key := identityKey{i.Provider, i.ProviderUserID}
	if _, ok := m.identities[key]; !ok {
		return ErrRecordNotFound
	}
	m.identities[key] = *i
	return nil
}

func (m *memState) PurgeTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for _, tokens := range []map[string]OneTimeToken{m.emailTokens, m.resetTokens} {
		for hash, t := range tokens {
			if t.ExpiresAt.Before(before) || (t.Used && t.CreatedAt.Before(before)) {
				delete(tokens, hash)
				n++
			}
		}
	}
	for hash, t := range m.refreshTokens {
		if t.ExpiresAt.Before(before) || (t.Revoked && t.CreatedAt.Before(before)) {
			delete(m.refreshTokens, hash)
			n++
		}
	}
	return n, nil
}
