package oauth

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
)

// ProviderGoogle is the provider name used in routes and stored identities.
const ProviderGoogle = "google"

type googleProvider struct {
	base
}

// NewGoogle returns the Google provider. Profiles come from the OpenID
// userinfo endpoint.
func NewGoogle(cfg GoogleConfig, opts ...ProviderOption) Provider {
	return &googleProvider{base: newBase(&oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     google.Endpoint,
	}, "https://openidconnect.googleapis.com", opts)}
}

func (p *googleProvider) Name() string { return ProviderGoogle }

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
	HostedDomain  string `json:"hd"`
}

// Exchange trades code for a token and reads the OpenID userinfo endpoint.
// Addresses Google has not verified are rejected, since accounts are linked
// by email.
func (p *googleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	tok, err := p.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := p.getJSON(ctx, tok, "/v1/userinfo", &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, ErrNoEmail
	}
	if !info.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	meta := map[string]any{}
	if info.Locale != "" {
		meta["locale"] = info.Locale
	}
	if info.HostedDomain != "" {
		meta["hd"] = info.HostedDomain
	}

	return &Profile{
		Provider:       ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          sanitizer.NormalizeEmail(info.Email),
		Name:           info.Name,
		AvatarURL:      info.Picture,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		Metadata:       meta,
	}, nil
}
