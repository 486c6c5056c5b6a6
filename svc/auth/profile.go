package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
	"github.com/dmitrymomot/authsvc/pkg/validator"
)

// GetProfile returns the account of userID with its linked providers.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.loadUser(ctx, s.store, userID)
	if err != nil {
		return Profile{}, err
	}
	idents, err := s.store.ListUserIdentities(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	providers := make([]string, 0, len(idents))
	for _, i := range idents {
		providers = append(providers, i.Provider)
	}
	slices.Sort(providers)
	return Profile{
		UserView:    user.View(),
		HasPassword: user.HasPassword(),
		Providers:   slices.Compact(providers),
	}, nil
}

// UpdateProfile sets the display name of userID.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (UserView, error) {
	name = sanitizer.NormalizeName(name)
	if err := validator.Apply(validator.MaxLenString("name", name, MaxNameLength)); err != nil {
		return UserView{}, validationError(err)
	}
	if err := s.store.UpdateUserName(ctx, userID, name, s.now()); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return UserView{}, ErrUserNotFound
		}
		return UserView{}, fmt.Errorf("update profile: %w", err)
	}
	user, err := s.loadUser(ctx, s.store, userID)
	if err != nil {
		return UserView{}, err
	}
	return user.View(), nil
}

// UpdateAvatar stores a reference to an uploaded avatar for userID.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (UserView, error) {
	if err := validator.Apply(
		validator.RequiredString("avatar", avatarURL),
		validator.MaxLenString("avatar", avatarURL, 2048),
	); err != nil {
		return UserView{}, validationError(err)
	}
	if err := s.store.UpdateUserAvatar(ctx, userID, avatarURL, s.now()); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return UserView{}, ErrUserNotFound
		}
		return UserView{}, fmt.Errorf("update avatar: %w", err)
	}
	user, err := s.loadUser(ctx, s.store, userID)
	if err != nil {
		return UserView{}, err
	}
	return user.View(), nil
}

// ChangePassword replaces the password of userID after checking the current
// one, and revokes every refresh token of the user. Accounts without a
// password fail with ErrInvalidCredentials; they set one through the reset
// flow.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if err := validator.Apply(validator.Password("new_password", next)...); err != nil {
		return validationError(err)
	}
	user, err := s.loadUser(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return ErrInvalidCredentials
	}
	ok, err := s.passwords.Verify(user.PasswordHash, current)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		now := s.now()
		if err := q.UpdatePasswordHash(ctx, userID, hash, now); err != nil {
			return err
		}
		_, err := q.RevokeUserRefreshTokens(ctx, userID, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", logger.UserID(userID), logger.Component("auth"))
	s.publish(ctx, EventPasswordChanged, userID, nil)
	return nil
}
