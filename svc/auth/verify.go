package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
	"github.com/dmitrymomot/authsvc/pkg/validator"
)

// VerifyEmail consumes an email verification token and marks its user as
// verified in one transaction, then signs the user in. Unknown, expired and
// already used tokens all fail with ErrTokenNotFound.
func (s *Service) VerifyEmail(ctx context.Context, plainToken string) (Session, error) {
	if plainToken == "" {
		return Session{}, ErrTokenNotFound
	}
	digest, err := s.secrets.Hash(plainToken)
	if err != nil {
		return Session{}, ErrTokenNotFound
	}

	var user *User
	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		now := s.now()
		tok, err := q.ConsumeEmailToken(ctx, digest, now)
		if errors.Is(err, ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		if err := q.MarkEmailVerified(ctx, tok.UserID, now); err != nil {
			return err
		}
		user, err = s.loadUser(ctx, q, tok.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrTokenNotFound
		}
		return Session{}, fmt.Errorf("verify email: %w", err)
	}

	s.logger.InfoContext(ctx, "email verified", logger.UserID(user.ID), logger.Component("auth"))
	s.publish(ctx, EventEmailVerified, user.ID, nil)

	sess, err := s.issueSession(ctx, s.store, user)
	if err != nil {
		return Session{}, fmt.Errorf("verify email: issue session: %w", err)
	}
	return sess, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account and enqueues the email. Earlier tokens stay valid until they
// expire. The result never reveals whether the email is registered.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return validationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			s.logger.ErrorContext(ctx, "resend verification: lookup failed", logger.Error(err), logger.Component("auth"))
		}
		return nil
	}
	if user.EmailVerified {
		return nil
	}

	plain, tok, err := s.oneTimeToken(user.ID, s.cfg.EmailTokenTTL())
	if err == nil {
		err = s.store.CreateEmailToken(ctx, tok)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "resend verification: token not created",
			logger.UserID(user.ID), logger.Error(err), logger.Component("auth"))
		return nil
	}

	s.dispatch(ctx, MailMessage{
		Kind:   MailVerification,
		UserID: user.ID,
		Email:  user.Email,
		Token:  plain,
		Name:   user.Name,
	})
	return nil
}
