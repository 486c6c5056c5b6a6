package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Profile is the provider account resolved after a successful exchange.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	AccessToken    string
	RefreshToken   string
	Metadata       map[string]any
}

// Provider is one OAuth identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	// Exchange trades code for tokens and fetches the account profile. The
	// returned email is verified by the provider.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// ProviderOption overrides provider endpoints, mostly for tests.
type ProviderOption func(*base)

// WithEndpoint replaces the authorization and token endpoints.
func WithEndpoint(e oauth2.Endpoint) ProviderOption {
	return func(b *base) { b.oauth.Endpoint = e }
}

// WithAPIBaseURL replaces the profile API root.
func WithAPIBaseURL(url string) ProviderOption {
	return func(b *base) { b.apiBase = url }
}

// WithHTTPClient sets the client used for token exchange and profile calls.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(b *base) {
		if c != nil {
			b.client = c
		}
	}
}

type base struct {
	oauth   *oauth2.Config
	apiBase string
	client  *http.Client
}

func newBase(cfg *oauth2.Config, apiBase string, opts []ProviderOption) base {
	b := base{oauth: cfg, apiBase: apiBase, client: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) AuthCodeURL(state string) string {
	return b.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (b *base) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)
	tok, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(ErrInvalidCode, err)
	}
	return tok, nil
}

// getJSON fetches path from the profile API with the bearer token and
// decodes the body into v.
func (b *base) getJSON(ctx context.Context, tok *oauth2.Token, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiBase+path, nil)
	if err != nil {
		return errors.Join(ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.Join(ErrProfileFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrProfileFetch, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Join(ErrProfileFetch, err)
	}
	return nil
}
