package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
	"github.com/dmitrymomot/authsvc/pkg/validator"
)

// Login checks email and password and issues a session. Unknown emails,
// accounts without a password and wrong passwords all fail with
// ErrInvalidCredentials. Unverified accounts fail with ErrEmailNotVerified
// unless the unverified-login policy allows them.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(
		validator.RequiredString("email", email),
		validator.RequiredString("password", password),
	); err != nil {
		return Session{}, validationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		user = nil
	case err != nil:
		return Session{}, fmt.Errorf("login: %w", err)
	}

	if user == nil || !user.HasPassword() {
		// burn comparable time so unknown emails are not distinguishable
		if dummy := s.dummyPasswordHash(); dummy != "" {
			_, _ = s.passwords.Verify(dummy, password)
		}
		return Session{}, ErrInvalidCredentials
	}

	ok, err := s.passwords.Verify(user.PasswordHash, password)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash is malformed",
			logger.UserID(user.ID), logger.Error(err), logger.Component("auth"))
		return Session{}, ErrInvalidCredentials
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	if !user.EmailVerified && !s.cfg.AllowUnverifiedLogin {
		return Session{}, ErrEmailNotVerified
	}

	sess, err := s.issueSession(ctx, s.store, user)
	if err != nil {
		return Session{}, fmt.Errorf("login: issue session: %w", err)
	}

	s.publish(ctx, EventUserLoggedIn, user.ID, map[string]any{"method": "password"})
	return sess, nil
}

// Refresh rotates a refresh token. The presented token is revoked before its
// replacement is issued, in the same transaction, so a token can be
// exchanged at most once; every other attempt fails with
// ErrInvalidRefreshToken. Callers should clear client-held session
// artifacts when Refresh fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, ErrInvalidRefreshToken
	}
	claims, err := s.codec.Verify(refreshToken)
	if err != nil || claims.Kind != KindRefresh {
		return Session{}, ErrInvalidRefreshToken
	}
	digest, err := s.secrets.Hash(refreshToken)
	if err != nil {
		return Session{}, ErrInvalidRefreshToken
	}

	var sess Session
	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		row, err := q.RevokeRefreshToken(ctx, digest, s.now())
		if errors.Is(err, ErrRecordNotFound) {
			return ErrInvalidRefreshToken
		}
		if err != nil {
			return err
		}
		if row.UserID != claims.UserID {
			return ErrInvalidRefreshToken
		}
		user, err := s.loadUser(ctx, q, row.UserID)
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidRefreshToken
		}
		if err != nil {
			return err
		}
		sess, err = s.issueSession(ctx, q, user)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			s.logger.WarnContext(ctx, "refresh token rejected",
				logger.UserID(claims.UserID), logger.Component("auth"))
			return Session{}, err
		}
		return Session{}, fmt.Errorf("refresh: %w", err)
	}
	return sess, nil
}

// Logout revokes the presented refresh token. It never fails: unknown,
// revoked and malformed tokens are ignored and store errors are logged.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	digest, err := s.secrets.Hash(refreshToken)
	if err != nil {
		return
	}
	if _, err := s.store.RevokeRefreshToken(ctx, digest, s.now()); err != nil && !errors.Is(err, ErrRecordNotFound) {
		s.logger.ErrorContext(ctx, "logout: revoke failed", logger.Error(err), logger.Component("auth"))
	}
}

// Authenticate verifies an access token and returns its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil || claims.Kind != KindAccess {
		return nil, ErrInvalidAccessToken
	}
	user, err := s.loadUser(ctx, s.store, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidAccessToken
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}
