package account

import (
	"net/http"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/pkg/cookie"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

// Enumeration-safe endpoints answer with the same text whether or not the
// address is known.
const (
	resendMessage = "If the account exists and is not verified, a new verification email has been sent."
	forgotMessage = "If an account with that email exists, a password reset email has been sent."
)

// Request bodies. Binders reject unknown fields, so a typo in a field name
// fails loudly instead of being ignored.

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// signup answers 201 with the unverified user. No session is issued until
// the address is verified.
func (m *Module) signup(ctx handler.Context, req signupRequest) handler.Response {
	user, err := m.svc.Signup(ctx, auth.SignupInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSONStatus(http.StatusCreated, user)
}

// verifyEmail consumes the one-time token and signs the user in.
func (m *Module) verifyEmail(ctx handler.Context, req tokenRequest) handler.Response {
	sess, err := m.svc.VerifyEmail(ctx, req.Token)
	if err != nil {
		return handler.Error(err)
	}
	return m.sessionResponse(ctx, sess)
}

func (m *Module) resendVerification(ctx handler.Context, req emailRequest) handler.Response {
	if err := m.svc.ResendVerification(ctx, req.Email); err != nil {
		return handler.Error(err)
	}
	return handler.Message(resendMessage)
}

// login reports every credential failure with the same error so callers
// cannot tell a wrong password from an unknown email.
func (m *Module) login(ctx handler.Context, req loginRequest) handler.Response {
	sess, err := m.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return handler.Error(err)
	}
	return m.sessionResponse(ctx, sess)
}

// refresh rotates the refresh token from the body, or from the cookie when
// the body has none. A failed rotation clears the cookie.
func (m *Module) refresh(ctx handler.Context, req refreshRequest) handler.Response {
	tok := req.RefreshToken
	if tok == "" {
		tok, _ = m.cookies.Get(ctx.Request(), m.cfg.RefreshCookieName)
	}
	if tok == "" {
		m.clearRefreshCookie(ctx.ResponseWriter())
		return handler.Error(errMissingRefreshToken)
	}
	sess, err := m.svc.Refresh(ctx, tok)
	if err != nil {
		m.clearRefreshCookie(ctx.ResponseWriter())
		return handler.Error(err)
	}
	return m.sessionResponse(ctx, sess)
}

// logout always succeeds; an unknown token is already as good as revoked.
func (m *Module) logout(ctx handler.Context, req refreshRequest) handler.Response {
	tok := req.RefreshToken
	if tok == "" {
		tok, _ = m.cookies.Get(ctx.Request(), m.cfg.RefreshCookieName)
	}
	if tok != "" {
		m.svc.Logout(ctx, tok)
	}
	m.clearRefreshCookie(ctx.ResponseWriter())
	return handler.Empty()
}

func (m *Module) forgotPassword(ctx handler.Context, req emailRequest) handler.Response {
	if err := m.svc.RequestPasswordReset(ctx, req.Email); err != nil {
		return handler.Error(err)
	}
	return handler.Message(forgotMessage)
}

// resetPassword sets the new password and signs out every session. The
// caller has to log in again.
func (m *Module) resetPassword(ctx handler.Context, req resetPasswordRequest) handler.Response {
	if err := m.svc.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

// sessionResponse returns the session as JSON and mirrors the refresh token
// into an HttpOnly cookie scoped to the refresh path, so browsers never
// expose it to scripts.
func (m *Module) sessionResponse(ctx handler.Context, sess auth.Session) handler.Response {
	ttl := sess.RefreshExpiresAt.Sub(m.now())
	m.cookies.Set(ctx.ResponseWriter(), m.cfg.RefreshCookieName, sess.RefreshToken,
		cookie.WithPath(m.cfg.RefreshCookiePath),
		cookie.WithTTL(ttl),
		cookie.WithHTTPOnly(true),
	)
	return handler.JSON(sess)
}

func (m *Module) clearRefreshCookie(w http.ResponseWriter) {
	m.cookies.Delete(w, m.cfg.RefreshCookieName, cookie.WithPath(m.cfg.RefreshCookiePath))
}
