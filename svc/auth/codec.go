package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/jwt"
)

// TokenKind discriminates access tokens from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// ErrTokenInvalid is returned by TokenCodec.Verify for bad signatures,
// wrong issuer or audience, expiry and malformed subjects.
var ErrTokenInvalid = fmt.Errorf("%w: invalid token", ErrAuthentication)

type tokenClaims struct {
	jwt.RegisteredClaims
	Kind  TokenKind `json:"kind"`
	Email string    `json:"email,omitempty"`
}

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	UserID    uuid.UUID
	Email     string
	Kind      TokenKind
	ExpiresAt time.Time
}

// TokenCodec issues and verifies signed access and refresh tokens. It does
// not check the kind of a verified token; callers must.
type TokenCodec struct {
	jwt *jwt.Service
	now func() time.Time
}

// NewTokenCodec creates a codec signing with secret and binding tokens to
// issuer and audience.
func NewTokenCodec(secret, issuer, audience string, now func() time.Time) (*TokenCodec, error) {
	if now == nil {
		now = time.Now
	}
	svc, err := jwt.New([]byte(secret),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithClock(now),
	)
	if err != nil {
		return nil, err
	}
	return &TokenCodec{jwt: svc, now: now}, nil
}

// Issue signs a token of kind for userID that expires after ttl. Each token
// carries a random jti, so two tokens issued in the same second differ.
func (c *TokenCodec) Issue(kind TokenKind, userID uuid.UUID, email string, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(ttl)
	signed, err := c.jwt.Generate(&tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    c.jwt.Issuer(),
			Audience:  jwt.ClaimStrings{c.jwt.Audience()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Kind:  kind,
		Email: email,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Verify checks signature, issuer, audience and expiry and returns the claims.
func (c *TokenCodec) Verify(token string) (TokenClaims, error) {
	var claims tokenClaims
	if err := c.jwt.Parse(token, &claims); err != nil {
		return TokenClaims{}, errors.Join(ErrTokenInvalid, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return TokenClaims{}, errors.Join(ErrTokenInvalid, err)
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return TokenClaims{}, ErrTokenInvalid
	}
	out := TokenClaims{UserID: userID, Email: claims.Email, Kind: claims.Kind}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
