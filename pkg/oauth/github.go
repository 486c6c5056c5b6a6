package oauth

import (
	"context"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
)

// ProviderGitHub is the provider name used in routes and stored identities.
const ProviderGitHub = "github"

type githubProvider struct {
	base
}

// NewGitHub returns the GitHub provider. The email is taken from the
// /user/emails list: the primary address when verified, else the first
// verified one.
func NewGitHub(cfg GitHubConfig, opts ...ProviderOption) Provider {
	return &githubProvider{base: newBase(&oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     github.Endpoint,
	}, "https://api.github.com", opts)}
}

func (p *githubProvider) Name() string { return ProviderGitHub }

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange trades code for a token, then reads the user and their primary
// email. The public profile email is often empty, so /user/emails is the
// source of truth.
func (p *githubProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	tok, err := p.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	var user githubUser
	if err := p.getJSON(ctx, tok, "/user", &user); err != nil {
		return nil, err
	}
	var emails []githubEmail
	if err := p.getJSON(ctx, tok, "/user/emails", &emails); err != nil {
		return nil, err
	}

	email, err := pickGitHubEmail(emails)
	if err != nil {
		return nil, err
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &Profile{
		Provider:       ProviderGitHub,
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          sanitizer.NormalizeEmail(email),
		Name:           name,
		AvatarURL:      user.AvatarURL,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		Metadata:       map[string]any{"login": user.Login},
	}, nil
}

func pickGitHubEmail(emails []githubEmail) (string, error) {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return "", ErrUnverifiedEmail
	}
	return "", ErrNoEmail
}
