package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
	"github.com/dmitrymomot/authsvc/pkg/validator"
)

// RequestPasswordReset enqueues a reset email when email belongs to an
// account with a password. It returns nil whether or not such an account
// exists; only a malformed email is reported.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return validationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			s.logger.ErrorContext(ctx, "password reset: lookup failed", logger.Error(err), logger.Component("auth"))
		}
		return nil
	}
	// OAuth-only accounts set a password by other means; stay silent so the
	// response does not reveal how the account signs in.
	if !user.HasPassword() {
		return nil
	}

	plain, tok, err := s.oneTimeToken(user.ID, s.cfg.ResetTokenTTL)
	if err == nil {
		err = s.store.CreateResetToken(ctx, tok)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "password reset: token not created",
			logger.UserID(user.ID), logger.Error(err), logger.Component("auth"))
		return nil
	}

	s.dispatch(ctx, MailMessage{
		Kind:   MailPasswordReset,
		UserID: user.ID,
		Email:  user.Email,
		Token:  plain,
		Name:   user.Name,
	})
	return nil
}

// ResetPassword consumes a reset token, sets the new password and revokes
// every refresh token of the user, all in one transaction.
func (s *Service) ResetPassword(ctx context.Context, plainToken, newPassword string) error {
	if err := validator.Apply(validator.Password("password", newPassword)...); err != nil {
		return validationError(err)
	}
	if plainToken == "" {
		return ErrTokenNotFound
	}
	digest, err := s.secrets.Hash(plainToken)
	if err != nil {
		return ErrTokenNotFound
	}
	// Hashed outside the transaction; no row lock is held during argon2.
	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: hash: %w", err)
	}

	var (
		userID  uuid.UUID
		revoked int64
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		now := s.now()
		tok, err := q.ConsumeResetToken(ctx, digest, now)
		if errors.Is(err, ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		if err := q.UpdatePasswordHash(ctx, tok.UserID, hash, now); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return err
		}
		revoked, err = q.RevokeUserRefreshTokens(ctx, tok.UserID, now)
		userID = tok.UserID
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset",
		logger.UserID(userID), slog.Int64("revoked_sessions", revoked), logger.Component("auth"))
	s.publish(ctx, EventPasswordReset, userID, nil)
	return nil
}
