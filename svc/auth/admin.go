package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/pkg/sanitizer"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// UserPage is one page of ListUsers.
type UserPage struct {
	Users  []UserView `json:"users"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// ListUsers pages through all users. The actor must be at least an admin.
func (s *Service) ListUsers(ctx context.Context, actorID uuid.UUID, limit, offset int) (UserPage, error) {
	if _, err := s.requireRole(ctx, actorID, RoleAdmin); err != nil {
		return UserPage{}, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)

	users, total, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return UserPage{Users: views, Total: total, Limit: limit, Offset: offset}, nil
}

// SetUserRole changes the role of targetID on behalf of actorID.
//
// The actor must be at least an admin and cannot change their own role.
// Non-superusers may only change users ranked below them, to a role ranked
// below theirs, so assigning RoleSuperuser by anyone else fails with
// ErrInsufficientRole. A superuser assigning RoleSuperuser gets
// ErrSuperuserExists. Assigning the current role fails with ErrRoleUnchanged.
func (s *Service) SetUserRole(ctx context.Context, actorID, targetID uuid.UUID, role Role) (UserView, error) {
	if !role.Valid() {
		return UserView{}, fmt.Errorf("%w: invalid role", ErrValidation)
	}
	actor, err := s.requireRole(ctx, actorID, RoleAdmin)
	if err != nil {
		return UserView{}, err
	}
	if actorID == targetID {
		return UserView{}, ErrSelfRoleChange
	}

	var (
		target   *User
		previous Role
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		target, err = s.loadUser(ctx, q, targetID)
		if err != nil {
			return err
		}
		if actor.Role != RoleSuperuser {
			if target.Role.Compare(actor.Role) >= 0 || role.Compare(actor.Role) >= 0 {
				return ErrInsufficientRole
			}
		}
		// Rank is checked first: only a superuser learns whether one exists.
		if role == RoleSuperuser {
			n, err := q.CountUsersByRole(ctx, RoleSuperuser)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrSuperuserExists
			}
		}
		if target.Role == role {
			return ErrRoleUnchanged
		}

		if err := q.SetUserRole(ctx, targetID, role, s.now()); err != nil {
			if errors.Is(err, ErrDuplicateRecord) {
				return ErrSuperuserExists
			}
			return err
		}
		previous, target.Role = target.Role, role
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuthorization) || errors.Is(err, ErrConflict) {
			return UserView{}, err
		}
		return UserView{}, fmt.Errorf("set user role: %w", err)
	}

	s.logger.InfoContext(ctx, "user role changed",
		logger.UserID(targetID),
		logger.Role(role.String()),
		slog.String("actor_id", actorID.String()),
		logger.Component("auth"),
	)
	s.publish(ctx, EventRoleChanged, targetID, map[string]any{
		"from":  previous.String(),
		"to":    role.String(),
		"actor": actorID.String(),
	})
	return target.View(), nil
}

// BootstrapSuperuser promotes the user with email to superuser when no
// superuser exists yet. It reports whether a promotion happened.
func (s *Service) BootstrapSuperuser(ctx context.Context, email string) (bool, error) {
	email = sanitizer.NormalizeEmail(email)
	promoted := false
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		n, err := q.CountUsersByRole(ctx, RoleSuperuser)
		if err != nil || n > 0 {
			return err
		}
		user, err := q.GetUserByEmail(ctx, email)
		if errors.Is(err, ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if err := q.SetUserRole(ctx, user.ID, RoleSuperuser, s.now()); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, err
		}
		return false, fmt.Errorf("bootstrap superuser: %w", err)
	}
	if promoted {
		s.logger.InfoContext(ctx, "superuser bootstrapped", logger.Component("auth"))
	}
	return promoted, nil
}

func (s *Service) requireRole(ctx context.Context, actorID uuid.UUID, want Role) (*User, error) {
	actor, err := s.store.GetUserByID(ctx, actorID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrInsufficientRole
	}
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if !actor.Role.AtLeast(want) {
		return nil, ErrInsufficientRole
	}
	return actor, nil
}
