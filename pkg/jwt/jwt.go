package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

type (
	// RegisteredClaims are the RFC 7519 registered claims.
	RegisteredClaims = gojwt.RegisteredClaims
	// Claims is implemented by every claims type accepted by Service.
	Claims = gojwt.Claims
	// ClaimStrings is the aud claim representation.
	ClaimStrings = gojwt.ClaimStrings
)

// NewNumericDate converts t to a JWT numeric date.
func NewNumericDate(t time.Time) *gojwt.NumericDate {
	return gojwt.NewNumericDate(t)
}

// Service handles JWT generation and validation using HMAC-SHA256.
type Service struct {
	key      []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer requires the iss claim to equal issuer on Parse.
func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithAudience requires the aud claim to contain audience on Parse.
func WithAudience(audience string) Option {
	return func(s *Service) { s.audience = audience }
}

// WithLeeway tolerates clock skew when checking exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// WithClock overrides the time source used for validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service with the provided signing key.
func New(key []byte, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &Service{key: key, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issuer returns the configured issuer.
func (s *Service) Issuer() string { return s.issuer }

// Audience returns the configured audience.
func (s *Service) Audience() string { return s.audience }

// Generate signs claims with HS256.
func (s *Service) Generate(claims Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and registered claims of tokenString and
// decodes it into claims. Tokens without exp are rejected.
func (s *Service) Parse(tokenString string, claims Claims) error {
	if claims == nil {
		return ErrMissingClaims
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuedAt(),
		gojwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, gojwt.WithAudience(s.audience))
	}
	if s.leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(s.leeway))
	}

	_, err := gojwt.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (any, error) {
		return s.key, nil
	}, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}
