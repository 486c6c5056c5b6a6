package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/modules/account"
	"github.com/dmitrymomot/authsvc/pkg/clientip"
	"github.com/dmitrymomot/authsvc/pkg/cookie"
	"github.com/dmitrymomot/authsvc/pkg/file"
	"github.com/dmitrymomot/authsvc/pkg/oauth"
	"github.com/dmitrymomot/authsvc/pkg/password"
	"github.com/dmitrymomot/authsvc/pkg/ratelimiter"
	"github.com/dmitrymomot/authsvc/pkg/secrets"
	"github.com/dmitrymomot/authsvc/pkg/token"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

const (
	testPassword  = "Abc12345"
	cookieSecret  = "cookie-secret-of-at-least-32-characters"
	testMasterKey = "test-master-secret-at-least-32-characters"
)

type recordingMailer struct {
	mu   sync.Mutex
	msgs []auth.MailMessage
}

func (m *recordingMailer) Dispatch(_ context.Context, msg auth.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *recordingMailer) last(t *testing.T, kind auth.MailKind) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Kind == kind {
			return m.msgs[i].Token
		}
	}
	t.Fatalf("no %s mail dispatched", kind)
	return ""
}

// fakeFlow plays an OAuth provider that always issues the same state.
type fakeFlow struct {
	state   string
	profile oauth.Profile
}

func (f *fakeFlow) AuthURL(_ context.Context, provider string) (string, error) {
	if provider != f.profile.Provider {
		return "", oauth.ErrUnknownProvider
	}
	return "https://provider.test/authorize?state=" + url.QueryEscape(f.state), nil
}

func (f *fakeFlow) Callback(_ context.Context, provider, code, state string) (*oauth.Profile, error) {
	if provider != f.profile.Provider {
		return nil, oauth.ErrUnknownProvider
	}
	if state != f.state {
		return nil, oauth.ErrInvalidState
	}
	if code == "" {
		return nil, oauth.ErrInvalidCode
	}
	p := f.profile
	return &p, nil
}

type fixture struct {
	store  *auth.MemoryStore
	mailer *recordingMailer
	server http.Handler
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	limit   *ratelimiter.Config
	noOAuth bool
}

func withoutOAuth() fixtureOption {
	return func(c *fixtureConfig) { c.noOAuth = true }
}

func withRateLimit(capacity int) fixtureOption {
	return func(c *fixtureConfig) {
		c.limit = &ratelimiter.Config{Capacity: capacity, RefillRate: 1, RefillInterval: time.Hour}
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	var fc fixtureConfig
	for _, o := range opts {
		o(&fc)
	}

	store := auth.NewMemoryStore()
	hasher, err := token.NewHasher("hmac-token-secret")
	require.NoError(t, err)
	cipher, err := secrets.NewCipher(testMasterKey, "test")
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec("jwt-signing-secret", "authsvc", "authsvc", nil)
	require.NoError(t, err)
	mailer := &recordingMailer{}
	svc := auth.NewService(store, codec, hasher, password.NewArgon2Hasher(), cipher, auth.WithMailer(mailer))

	cookies, err := cookie.New([]string{cookieSecret})
	require.NoError(t, err)
	avatars, err := file.NewLocalStorage(t.TempDir(), "/avatars/")
	require.NoError(t, err)
	flow := &fakeFlow{
		state: "state-123",
		profile: oauth.Profile{
			Provider:       "github",
			ProviderUserID: "gh-42",
			Email:          "octo@example.com",
			Name:           "Octo Cat",
			AccessToken:    "gho_access",
		},
	}

	modOpts := []account.Option{account.WithAvatarStorage(avatars)}
	if !fc.noOAuth {
		modOpts = append(modOpts, account.WithOAuth(flow))
	}
	if fc.limit != nil {
		resolver, err := clientip.NewResolver(clientip.Config{})
		require.NoError(t, err)
		rl, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), *fc.limit)
		require.NoError(t, err)
		modOpts = append(modOpts, account.WithRateLimiter(rl, resolver))
	}

	mod := account.New(svc, cookies, modOpts...)
	return &fixture{store: store, mailer: mailer, server: mod.Handle()}
}

type call struct {
	method  string
	path    string
	body    any
	bearer  string
	cookies []*http.Cookie
}

func (f *fixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		data, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	r := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for _, ck := range c.cookies {
		r.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorBody](t, rec).Error.Code
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// signupVerified registers and verifies email, returning the issued session.
func (f *fixture) signupVerified(t *testing.T, email string) auth.Session {
	t.Helper()
	rec := f.do(t, call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{"email": email, "password": testPassword}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, call{method: http.MethodPost, path: "/auth/verify-email", body: map[string]string{"token": f.mailer.last(t, auth.MailVerification)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[auth.Session](t, rec)
}

func (f *fixture) promote(t *testing.T, email string, role auth.Role) {
	t.Helper()
	u, err := f.store.GetUserByEmail(context.Background(), strings.ToLower(email))
	require.NoError(t, err)
	require.NoError(t, f.store.SetUserRole(context.Background(), u.ID, role, u.UpdatedAt))
}
