package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

// Manager routes the flow to registered providers.
type Manager struct {
	providers map[string]Provider
	states    StateStore
	ttl       time.Duration
	logger    *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for failed exchanges.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager returns a Manager using states to track issued states.
func NewManager(states StateStore, cfg Config, providers []Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: make(map[string]Provider, len(providers)),
		states:    states,
		ttl:       cfg.StateTTL,
		logger:    logger.Discard(),
	}
	if m.ttl <= 0 {
		m.ttl = 10 * time.Minute
	}
	for _, p := range providers {
		m.providers[p.Name()] = p
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Providers lists the configured provider names.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AuthURL issues a state for provider and returns the redirect URL.
func (m *Manager) AuthURL(ctx context.Context, provider string) (string, error) {
	p, ok := m.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := m.states.Save(ctx, state, provider, m.ttl); err != nil {
		return "", err
	}
	return p.AuthCodeURL(state), nil
}

// Callback consumes state and exchanges code with provider. A state issued
// for a different provider is rejected.
func (m *Manager) Callback(ctx context.Context, provider, code, state string) (*Profile, error) {
	p, ok := m.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if state == "" {
		return nil, ErrInvalidState
	}
	issuedFor, err := m.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if issuedFor != provider {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, ErrInvalidCode
	}

	profile, err := p.Exchange(ctx, code)
	if err != nil {
		m.logger.WarnContext(ctx, "oauth exchange failed", logger.Provider(provider), logger.Error(err))
		return nil, err
	}
	return profile, nil
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("oauth: generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
