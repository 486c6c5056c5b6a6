package account

import (
	"net/http"

	"github.com/dmitrymomot/authsvc/pkg/jwt"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

// Authenticate requires a valid access token in the Authorization header and
// stores the current user in the request context.
func (m *Module) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := jwt.BearerTokenExtractor(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="authsvc"`)
			m.writeError(w, r, errMissingBearer)
			return
		}
		user, err := m.svc.Authenticate(r.Context(), tok)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="authsvc", error="invalid_token"`)
			m.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.SetUserToContext(r.Context(), user)))
	})
}

// RequireRole rejects users ranked below min. It must run after Authenticate.
func RequireRole(min auth.Role, writeError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.GetUserFromContext(r.Context())
			if user == nil {
				writeError(w, r, errMissingBearer)
				return
			}
			if !user.Role.AtLeast(min) {
				writeError(w, r, auth.ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
