package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
	"github.com/dmitrymomot/authsvc/pkg/validator"
)

// MaxNameLength bounds display names, in characters.
const MaxNameLength = 100

// SignupInput is the payload of Signup.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// Signup creates an unverified user with a password and an email
// verification token in one transaction, then enqueues the verification
// email. A failure to enqueue is logged and does not fail the signup.
func (s *Service) Signup(ctx context.Context, in SignupInput) (UserView, error) {
	email := sanitizer.NormalizeEmail(in.Email)
	name := sanitizer.NormalizeName(in.Name)

	rules := []validator.Rule{
		validator.ValidEmail("email", email),
		validator.MaxLenString("name", name, MaxNameLength),
	}
	rules = append(rules, validator.Password("password", in.Password)...)
	if err := validator.Apply(rules...); err != nil {
		return UserView{}, validationError(err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return UserView{}, fmt.Errorf("signup: hash password: %w", err)
	}

	now := s.now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	plain, tok, err := s.oneTimeToken(user.ID, s.cfg.EmailTokenTTL())
	if err != nil {
		return UserView{}, fmt.Errorf("signup: generate token: %w", err)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.GetUserByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		if err := q.CreateUser(ctx, user); err != nil {
			if errors.Is(err, ErrDuplicateRecord) {
				return ErrEmailTaken
			}
			return err
		}
		return q.CreateEmailToken(ctx, tok)
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return UserView{}, err
		}
		return UserView{}, fmt.Errorf("signup: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed up", logger.UserID(user.ID), logger.Component("auth"))

	s.dispatch(ctx, MailMessage{
		Kind:   MailVerification,
		UserID: user.ID,
		Email:  user.Email,
		Token:  plain,
		Name:   user.Name,
	})
	s.publish(ctx, EventUserRegistered, user.ID, map[string]any{"method": "password"})

	return user.View(), nil
}
