package account

import (
	"crypto/subtle"
	"errors"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/pkg/cookie"
	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/oauth"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

type oauthCallbackRequest struct {
	Code  string `query:"code"`
	State string `query:"state"`
	Error string `query:"error"`
}

// stateCookiePath scopes the state cookie to one provider's routes.
func (m *Module) stateCookiePath(provider string) string {
	return "/auth/oauth/" + url.PathEscape(provider)
}

// oauthStart redirects to the provider. The issued state is also bound to
// this browser with a signed cookie, so a callback carrying someone else's
// state is rejected.
func (m *Module) oauthStart(ctx handler.Context, _ struct{}) handler.Response {
	provider := chi.URLParam(ctx.Request(), "provider")
	if m.oauth == nil {
		return handler.Error(oauth.ErrUnknownProvider)
	}
	authURL, err := m.oauth.AuthURL(ctx, provider)
	if err != nil {
		return handler.Error(err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		return handler.Error(err)
	}
	m.cookies.SetSigned(ctx.ResponseWriter(), m.cfg.StateCookieName, u.Query().Get("state"),
		cookie.WithPath(m.stateCookiePath(provider)),
		cookie.WithTTL(m.cfg.StateCookieTTL),
	)
	return handler.Redirect(authURL)
}

// oauthCallback checks the state against the signed cookie before talking
// to the provider. The cookie is cleared on every outcome so a state can
// not be replayed from the same browser.
func (m *Module) oauthCallback(ctx handler.Context, req oauthCallbackRequest) handler.Response {
	provider := chi.URLParam(ctx.Request(), "provider")
	if m.oauth == nil {
		return handler.Error(oauth.ErrUnknownProvider)
	}

	bound, cookieErr := m.cookies.GetSigned(ctx.Request(), m.cfg.StateCookieName)
	m.cookies.Delete(ctx.ResponseWriter(), m.cfg.StateCookieName, cookie.WithPath(m.stateCookiePath(provider)))

	if req.Error != "" {
		return handler.Error(errOAuthDenied)
	}
	if cookieErr != nil || req.State == "" || subtle.ConstantTimeCompare([]byte(bound), []byte(req.State)) != 1 {
		return handler.Error(errors.Join(oauth.ErrInvalidState, cookieErr))
	}

	profile, err := m.oauth.Callback(ctx, provider, req.Code, req.State)
	if err != nil {
		return handler.Error(err)
	}

	sess, err := m.svc.LinkOAuthAccount(ctx, auth.OAuthLogin{
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Name:           profile.Name,
		AvatarURL:      profile.AvatarURL,
		AccessToken:    profile.AccessToken,
		RefreshToken:   profile.RefreshToken,
		Metadata:       profile.Metadata,
	})
	if err != nil {
		return handler.Error(err)
	}
	m.log.InfoContext(ctx, "oauth sign-in", logger.Provider(provider), logger.UserID(sess.User.ID))
	return m.sessionResponse(ctx, sess)
}
