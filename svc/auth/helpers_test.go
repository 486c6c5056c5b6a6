package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/pkg/password"
	"github.com/dmitrymomot/authsvc/pkg/secrets"
	"github.com/dmitrymomot/authsvc/pkg/token"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

const (
	testPassword   = "Abc12345"
	testMasterKey  = "test-master-secret-at-least-32-characters"
	testJWTSecret  = "jwt-signing-secret"
	testHMACSecret = "hmac-token-secret"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
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

// recordingMailer keeps every dispatched message.
type recordingMailer struct {
	mu   sync.Mutex
	msgs []auth.MailMessage
	err  error
}

func (m *recordingMailer) Dispatch(_ context.Context, msg auth.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.err
}

func (m *recordingMailer) last(t *testing.T, kind auth.MailKind) auth.MailMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Kind == kind {
			return m.msgs[i]
		}
	}
	t.Fatalf("no %s mail dispatched", kind)
	return auth.MailMessage{}
}

func (m *recordingMailer) count(kind auth.MailKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.msgs {
		if msg.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	svc    *auth.Service
	store  *auth.MemoryStore
	clock  *clock
	mailer *recordingMailer
	hasher *token.Hasher
	cipher *secrets.Cipher
	codec  *auth.TokenCodec
}

func newFixture(t *testing.T, opts ...auth.ServiceOption) *fixture {
	t.Helper()

	clk := newClock()
	store := auth.NewMemoryStore()

	hasher, err := token.NewHasher(testHMACSecret)
	require.NoError(t, err)
	cipher, err := secrets.NewCipher(testMasterKey, "test")
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec(testJWTSecret, "authsvc", "authsvc", clk.Now)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	all := append([]auth.ServiceOption{
		auth.WithClock(clk.Now),
		auth.WithMailer(mailer),
	}, opts...)

	svc := auth.NewService(store, codec, hasher, password.NewArgon2Hasher(), cipher, all...)
	return &fixture{svc: svc, store: store, clock: clk, mailer: mailer, hasher: hasher, cipher: cipher, codec: codec}
}

// signupVerified registers email and verifies it, returning the session
// issued by verification.
func (f *fixture) signupVerified(t *testing.T, email string) auth.Session {
	t.Helper()
	_, err := f.svc.Signup(context.Background(), auth.SignupInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	sess, err := f.svc.VerifyEmail(context.Background(), f.mailer.last(t, auth.MailVerification).Token)
	require.NoError(t, err)
	return sess
}

// userWithRole creates a verified user and sets its role directly in the store.
func (f *fixture) userWithRole(t *testing.T, email string, role auth.Role) uuid.UUID {
	t.Helper()
	sess := f.signupVerified(t, email)
	if role != auth.RoleUser {
		require.NoError(t, f.store.SetUserRole(context.Background(), sess.User.ID, role, f.clock.Now()))
	}
	return sess.User.ID
}

// serviceOn builds a service sharing the fixture's crypto and clock on top
// of store.
func (f *fixture) serviceOn(store auth.Store) *auth.Service {
	return auth.NewService(store, f.codec, f.hasher, password.NewArgon2Hasher(), f.cipher,
		auth.WithClock(f.clock.Now),
		auth.WithMailer(f.mailer),
	)
}

// gatedStore holds every profile write until parties writers have arrived,
// so concurrent edits overlap.
type gatedStore struct {
	*auth.MemoryStore
	gate sync.WaitGroup
}

func newGatedStore(store *auth.MemoryStore, parties int) *gatedStore {
	g := &gatedStore{MemoryStore: store}
	g.gate.Add(parties)
	return g
}

func (g *gatedStore) arrive() {
	g.gate.Done()
	g.gate.Wait()
}

func (g *gatedStore) UpdateUserName(ctx context.Context, id uuid.UUID, name string, now time.Time) error {
	g.arrive()
	return g.MemoryStore.UpdateUserName(ctx, id, name, now)
}

func (g *gatedStore) UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string, now time.Time) error {
	g.arrive()
	return g.MemoryStore.UpdateUserAvatar(ctx, id, avatarURL, now)
}
