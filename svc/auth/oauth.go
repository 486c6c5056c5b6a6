package auth

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
	"github.com/dmitrymomot/authsvc/pkg/validator"
)

// LinkOAuthAccount signs in through a provider account.
//
// A known (provider, provider user id) pair updates the stored provider
// tokens; tokens the provider did not resend are kept. An unknown pair is
// linked to the user with the same email, which becomes verified, or to a
// new verified user without a password. Provider tokens are encrypted
// before they reach the store. OAuth sign-ins ignore the unverified-login
// policy because the provider vouches for the email.
func (s *Service) LinkOAuthAccount(ctx context.Context, in OAuthLogin) (Session, error) {
	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	in.Email = sanitizer.NormalizeEmail(in.Email)
	in.Name = sanitizer.NormalizeName(in.Name)
	if err := validator.Apply(
		validator.RequiredString("provider", in.Provider),
		validator.RequiredString("provider_user_id", in.ProviderUserID),
		validator.ValidEmail("email", in.Email),
	); err != nil {
		return Session{}, validationError(err)
	}
	if len([]rune(in.Name)) > MaxNameLength {
		in.Name = string([]rune(in.Name)[:MaxNameLength])
	}

	encAccess, err := s.cipher.Encrypt(in.AccessToken)
	if err != nil {
		return Session{}, fmt.Errorf("oauth: encrypt access token: %w", err)
	}
	encRefresh, err := s.cipher.Encrypt(in.RefreshToken)
	if err != nil {
		return Session{}, fmt.Errorf("oauth: encrypt refresh token: %w", err)
	}

	var (
		user    *User
		created bool
		linked  bool
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		now := s.now()

		ident, err := q.GetIdentity(ctx, in.Provider, in.ProviderUserID)
		switch {
		case err == nil:
			if encAccess != "" {
				ident.AccessTokenEncrypted = encAccess
			}
			if encRefresh != "" {
				ident.RefreshTokenEncrypted = encRefresh
			}
			if len(in.Metadata) > 0 {
				ident.Metadata = maps.Clone(in.Metadata)
			}
			ident.UpdatedAt = now
			if err := q.UpdateIdentity(ctx, ident); err != nil {
				return err
			}
			user, err = s.loadUser(ctx, q, ident.UserID)
			return err
		case !errors.Is(err, ErrRecordNotFound):
			return err
		}

		user, err = q.GetUserByEmail(ctx, in.Email)
		switch {
		case err == nil:
			if !user.EmailVerified {
				if err := q.MarkEmailVerified(ctx, user.ID, now); err != nil {
					return err
				}
				user.EmailVerified = true
			}
		case errors.Is(err, ErrRecordNotFound):
			user = &User{
				ID:            uuid.New(),
				Email:         in.Email,
				EmailVerified: true,
				Role:          RoleUser,
				Name:          in.Name,
				AvatarURL:     in.AvatarURL,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := q.CreateUser(ctx, user); err != nil {
				return err
			}
			created = true
		default:
			return err
		}

		linked = true
		return q.CreateIdentity(ctx, &Identity{
			ID:                    uuid.New(),
			UserID:                user.ID,
			Provider:              in.Provider,
			ProviderUserID:        in.ProviderUserID,
			AccessTokenEncrypted:  encAccess,
			RefreshTokenEncrypted: encRefresh,
			Metadata:              maps.Clone(in.Metadata),
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return Session{}, ErrIdentityLinked
		}
		return Session{}, fmt.Errorf("oauth: %w", err)
	}

	if created {
		s.publish(ctx, EventUserRegistered, user.ID, map[string]any{"method": in.Provider})
	}
	if linked {
		s.logger.InfoContext(ctx, "provider account linked",
			logger.UserID(user.ID), logger.Provider(in.Provider), logger.Component("auth"))
		s.publish(ctx, EventOAuthLinked, user.ID, map[string]any{"provider": in.Provider})
	}

	sess, err := s.issueSession(ctx, s.store, user)
	if err != nil {
		return Session{}, fmt.Errorf("oauth: issue session: %w", err)
	}
	s.publish(ctx, EventUserLoggedIn, user.ID, map[string]any{"method": in.Provider})
	return sess, nil
}

// ProviderTokens decrypts the stored provider tokens of userID for provider.
// Tampered or undecryptable tokens fail with ErrDecryption.
func (s *Service) ProviderTokens(ctx context.Context, userID uuid.UUID, provider string) (ProviderTokens, error) {
	ident, err := s.store.GetUserIdentity(ctx, userID, strings.ToLower(provider))
	if errors.Is(err, ErrRecordNotFound) {
		return ProviderTokens{}, ErrIdentityNotFound
	}
	if err != nil {
		return ProviderTokens{}, fmt.Errorf("provider tokens: %w", err)
	}

	access, err := s.cipher.Decrypt(ident.AccessTokenEncrypted)
	if err != nil {
		return ProviderTokens{}, errors.Join(ErrDecryption, err)
	}
	refresh, err := s.cipher.Decrypt(ident.RefreshTokenEncrypted)
	if err != nil {
		return ProviderTokens{}, errors.Join(ErrDecryption, err)
	}
	return ProviderTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// ListIdentities returns the provider accounts linked to userID.
func (s *Service) ListIdentities(ctx context.Context, userID uuid.UUID) ([]IdentityView, error) {
	idents, err := s.store.ListUserIdentities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	out := make([]IdentityView, 0, len(idents))
	for _, i := range idents {
		out = append(out, IdentityView{
			Provider:       i.Provider,
			ProviderUserID: i.ProviderUserID,
			CreatedAt:      i.CreatedAt,
			UpdatedAt:      i.UpdatedAt,
		})
	}
	return out, nil
}
