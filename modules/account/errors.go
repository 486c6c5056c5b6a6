package account

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/pkg/file"
	"github.com/dmitrymomot/authsvc/pkg/oauth"
	"github.com/dmitrymomot/authsvc/pkg/validator"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

var (
	errMissingBearer       = errors.New("missing bearer token")
	errMissingRefreshToken = errors.New("missing refresh token")
	errInvalidUserID       = errors.New("invalid user id")
	errOAuthDenied         = errors.New("provider denied the authorization request")
	errAvatarMissing       = errors.New("avatar file is required")
)

type errorCase struct {
	target  error
	status  int
	code    string
	message string
}

// Specific errors come before their categories so the first match wins.
var errorTable = []errorCase{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"},
	{auth.ErrEmailNotVerified, http.StatusUnauthorized, "email_not_verified", "Email address is not verified"},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token", "Invalid or expired refresh token"},
	{auth.ErrInvalidAccessToken, http.StatusUnauthorized, "invalid_access_token", "Invalid or expired access token"},
	{errMissingBearer, http.StatusUnauthorized, "invalid_access_token", "Invalid or expired access token"},
	{errMissingRefreshToken, http.StatusUnauthorized, "invalid_refresh_token", "Invalid or expired refresh token"},
	{auth.ErrAuthentication, http.StatusUnauthorized, "unauthenticated", "Authentication failed"},

	{auth.ErrInsufficientRole, http.StatusForbidden, "insufficient_role", "Insufficient role"},
	{auth.ErrSelfRoleChange, http.StatusForbidden, "self_role_change", "Cannot change your own role"},
	{auth.ErrAuthorization, http.StatusForbidden, "forbidden", "Forbidden"},

	{auth.ErrTokenNotFound, http.StatusNotFound, "invalid_token", "Invalid or expired token"},
	{auth.ErrUserNotFound, http.StatusNotFound, "user_not_found", "User not found"},
	{auth.ErrIdentityNotFound, http.StatusNotFound, "identity_not_found", "Identity not found"},
	{oauth.ErrUnknownProvider, http.StatusNotFound, "unknown_provider", "OAuth provider is not configured"},
	{auth.ErrNotFound, http.StatusNotFound, "not_found", "Resource not found"},

	{auth.ErrEmailTaken, http.StatusConflict, "email_taken", "Email already registered"},
	{auth.ErrIdentityLinked, http.StatusConflict, "identity_linked", "Provider account already linked"},
	{auth.ErrRoleUnchanged, http.StatusConflict, "role_unchanged", "User already has this role"},
	{auth.ErrSuperuserExists, http.StatusConflict, "superuser_exists", "A superuser already exists"},
	{auth.ErrConflict, http.StatusConflict, "conflict", "Conflict"},

	{auth.ErrDecryption, http.StatusInternalServerError, "decryption_error", "Stored credentials could not be decrypted"},

	{oauth.ErrInvalidState, http.StatusBadRequest, "invalid_oauth_state", "Invalid or expired OAuth state"},
	{oauth.ErrInvalidCode, http.StatusBadRequest, "invalid_oauth_code", "Invalid OAuth authorization code"},
	{errOAuthDenied, http.StatusBadRequest, "oauth_denied", "Authorization was denied by the provider"},
	{oauth.ErrUnverifiedEmail, http.StatusForbidden, "oauth_email_unverified", "Provider email address is not verified"},
	{oauth.ErrNoEmail, http.StatusForbidden, "oauth_email_missing", "Provider did not return an email address"},
	{oauth.ErrProfileFetch, http.StatusBadGateway, "oauth_provider_error", "OAuth provider request failed"},

	{errInvalidUserID, http.StatusBadRequest, "invalid_user_id", "Invalid user id"},
	{errAvatarMissing, http.StatusBadRequest, "avatar_missing", "Avatar file is required"},
	{file.ErrEmptyFile, http.StatusBadRequest, "avatar_missing", "Avatar file is required"},
	{file.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "avatar_too_large", "Avatar exceeds the size limit"},
	{file.ErrMIMETypeNotAllowed, http.StatusUnsupportedMediaType, "avatar_type_not_allowed", "Avatar must be a JPEG, PNG, GIF or WebP image"},
}

// MapError translates service, OAuth and upload errors into HTTP errors.
// Validation failures carry per-field details.
func MapError(err error) (handler.HTTPError, bool) {
	if errors.Is(err, auth.ErrValidation) {
		e := handler.HTTPError{
			Status:  http.StatusBadRequest,
			Code:    "validation_error",
			Message: "Validation failed",
		}
		if fields := validator.ExtractValidationErrors(err); len(fields) > 0 {
			e.Details = fields.Fields()
		}
		return e, true
	}
	for _, c := range errorTable {
		if errors.Is(err, c.target) {
			return handler.HTTPError{Status: c.status, Code: c.code, Message: c.message}, true
		}
	}
	return handler.HTTPError{}, false
}
