package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is a local account. An empty PasswordHash means the account was
// created through OAuth and has no password credential.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	EmailVerified bool
	Role          Role
	Name          string
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword is false for accounts created through OAuth only.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// View returns the public projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Role:          u.Role,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		CreatedAt:     u.CreatedAt,
	}
}

// UserView is the user representation returned to callers.
type UserView struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Role          Role      `json:"role"`
	Name          string    `json:"name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Profile is the view of the authenticated user's own account.
type Profile struct {
	UserView
	HasPassword bool     `json:"has_password"`
	Providers   []string `json:"providers"`
}

// OneTimeToken is an email-verification or password-reset token. Only the
// HMAC digest of the token is stored. A token is valid while it is unused
// and unexpired; once used it stays used.
type OneTimeToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid reports whether t can still be consumed at now.
func (t *OneTimeToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// RefreshToken is the stored side of a refresh token. ExpiresAt is the
// authoritative revocation boundary, independent of the JWT exp claim.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether t is neither revoked nor expired at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Identity links a provider account to a local user. Provider tokens are
// stored encrypted.
type Identity struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	Provider              string
	ProviderUserID        string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted string
	Metadata              map[string]any
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IdentityView is a linked provider account without token material.
type IdentityView struct {
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Session is the token pair handed to a client after authentication.
type Session struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	User             UserView  `json:"user"`
}

// OAuthLogin is the normalised result of a provider callback.
type OAuthLogin struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	AccessToken    string
	RefreshToken   string
	Metadata       map[string]any
}

// ProviderTokens are decrypted provider credentials.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
}

// MailKind selects the email template a MailMessage is rendered with.
type MailKind string

const (
	MailVerification  MailKind = "verification"
	MailPasswordReset MailKind = "password_reset"
)

// MailMessage is handed to the mail dispatcher. Token is the plaintext token
// and must not be persisted by the dispatcher beyond delivery.
type MailMessage struct {
	Kind   MailKind  `json:"kind"`
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Token  string    `json:"token"`
	Name   string    `json:"name,omitempty"`
}

// Event names published after successful state changes.
const (
	EventUserRegistered  = "user.registered"
	EventEmailVerified   = "user.email_verified"
	EventUserLoggedIn    = "user.logged_in"
	EventPasswordReset   = "user.password_reset"
	EventPasswordChanged = "user.password_changed"
	EventRoleChanged     = "user.role_changed"
	EventOAuthLinked     = "user.oauth_linked"
)

// Event is the payload published for domain events.
type Event struct {
	Type       string         `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}
