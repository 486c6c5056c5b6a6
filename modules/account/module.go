package account

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/pkg/clientip"
	"github.com/dmitrymomot/authsvc/pkg/cookie"
	"github.com/dmitrymomot/authsvc/pkg/file"
	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/oauth"
	"github.com/dmitrymomot/authsvc/pkg/ratelimiter"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

// AuthService is the part of auth.Service the HTTP surface calls.
type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (auth.UserView, error)
	VerifyEmail(ctx context.Context, token string) (auth.Session, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	Logout(ctx context.Context, refreshToken string)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	LinkOAuthAccount(ctx context.Context, in auth.OAuthLogin) (auth.Session, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.User, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (auth.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (auth.UserView, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (auth.UserView, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	ListIdentities(ctx context.Context, userID uuid.UUID) ([]auth.IdentityView, error)

	ListUsers(ctx context.Context, actorID uuid.UUID, limit, offset int) (auth.UserPage, error)
	SetUserRole(ctx context.Context, actorID, targetID uuid.UUID, role auth.Role) (auth.UserView, error)
}

// OAuthFlow runs the provider redirect and callback.
type OAuthFlow interface {
	AuthURL(ctx context.Context, provider string) (string, error)
	Callback(ctx context.Context, provider, code, state string) (*oauth.Profile, error)
}

// Module serves the account API.
type Module struct {
	svc      AuthService
	cookies  *cookie.Manager
	oauth    OAuthFlow
	avatars  file.Storage
	limiter  ratelimiter.RateLimiter
	clientIP *clientip.Resolver
	cfg      Config
	log      *slog.Logger
	now      func() time.Time

	errorHandler handler.ErrorHandler[handler.Context]
}

// Option configures a Module.
type Option func(*Module)

// WithConfig sets cookie names and paths and body size limits.
func WithConfig(cfg Config) Option {
	return func(m *Module) { m.cfg = cfg }
}

// WithLogger sets the logger for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

// WithOAuth enables the /auth/oauth routes.
func WithOAuth(flow OAuthFlow) Option {
	return func(m *Module) { m.oauth = flow }
}

// WithAvatarStorage enables PUT /me/avatar.
func WithAvatarStorage(s file.Storage) Option {
	return func(m *Module) { m.avatars = s }
}

// WithRateLimiter limits credential endpoints per client address.
func WithRateLimiter(l ratelimiter.RateLimiter, res *clientip.Resolver) Option {
	return func(m *Module) {
		m.limiter = l
		m.clientIP = res
	}
}

// WithClock overrides the time source used for cookie expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		if now != nil {
			m.now = now
		}
	}
}

// New builds the account HTTP module on top of svc. Optional features stay
// disabled until their option is given.
func New(svc AuthService, cookies *cookie.Manager, opts ...Option) *Module {
	m := &Module{
		svc:     svc,
		cookies: cookies,
		cfg:     DefaultConfig(),
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.errorHandler = handler.NewErrorHandler(m.log, MapError)
	return m
}

// Handle returns the router with every account route mounted.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		m.writeError(w, r, handler.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		m.writeError(w, r, handler.ErrMethodNotAllowed)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(m.rateLimit)
			r.Post("/signup", wrap(m, m.signup, m.jsonBody()))
			r.Post("/login", wrap(m, m.login, m.jsonBody()))
			r.Post("/refresh", wrap(m, m.refresh, m.optionalJSONBody()))
			r.Post("/resend-verification", wrap(m, m.resendVerification, m.jsonBody()))
			r.Post("/forgot-password", wrap(m, m.forgotPassword, m.jsonBody()))
			r.Post("/reset-password", wrap(m, m.resetPassword, m.jsonBody()))
		})
		r.Post("/verify-email", wrap(m, m.verifyEmail, m.jsonBody()))
		r.Post("/logout", wrap(m, m.logout, m.optionalJSONBody()))

		r.Get("/oauth/{provider}", wrap[struct{}](m, m.oauthStart))
		r.Get("/oauth/{provider}/callback", wrap(m, m.oauthCallback, queryBinder))
	})

	r.Group(func(r chi.Router) {
		r.Use(m.Authenticate)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", wrap[struct{}](m, m.getProfile))
			r.Patch("/", wrap(m, m.updateProfile, m.jsonBody()))
			r.Post("/password", wrap(m, m.changePassword, m.jsonBody()))
			r.Put("/avatar", wrap(m, m.uploadAvatar, m.avatarBody()))
			r.Get("/identities", wrap[struct{}](m, m.listIdentities))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(auth.RoleAdmin, m.writeError))
			r.Get("/users", wrap(m, m.listUsers, queryBinder))
			r.Put("/users/{id}/role", wrap(m, m.setUserRole, m.jsonBody()))
		})
	})

	return r
}

func wrap[R any](m *Module, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	handler.WriteError(m.log, w, r, err, MapError)
}

func (m *Module) rateLimit(next http.Handler) http.Handler {
	if m.limiter == nil || m.clientIP == nil {
		return next
	}
	key := func(r *http.Request) string {
		ip := m.clientIP.Key(r)
		if ip == "" {
			return ""
		}
		return "auth:" + ip
	}
	return ratelimiter.Middleware(m.limiter, key,
		ratelimiter.WithLimitedHandler(func(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
			m.writeError(w, r, handler.ErrTooManyRequests)
		}),
	)(next)
}
