package account

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/pkg/file"
	"github.com/dmitrymomot/authsvc/pkg/logger"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

type updateProfileRequest struct {
	Name string `json:"name"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type avatarRequest struct {
	Avatar *multipart.FileHeader `file:"avatar"`
}

// currentUser returns the id stored by Authenticate. Routes using it are
// mounted behind that middleware, so uuid.Nil only shows up in misrouted
// handlers and fails the store lookup.
func currentUser(ctx context.Context) uuid.UUID {
	if u := auth.GetUserFromContext(ctx); u != nil {
		return u.ID
	}
	return uuid.Nil
}

func (m *Module) getProfile(ctx handler.Context, _ struct{}) handler.Response {
	p, err := m.svc.GetProfile(ctx, currentUser(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(p)
}

func (m *Module) updateProfile(ctx handler.Context, req updateProfileRequest) handler.Response {
	u, err := m.svc.UpdateProfile(ctx, currentUser(ctx), req.Name)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(u)
}

// changePassword revokes every refresh token, so the cookie goes too.
func (m *Module) changePassword(ctx handler.Context, req changePasswordRequest) handler.Response {
	if err := m.svc.ChangePassword(ctx, currentUser(ctx), req.CurrentPassword, req.NewPassword); err != nil {
		return handler.Error(err)
	}
	m.clearRefreshCookie(ctx.ResponseWriter())
	return handler.Empty()
}

// listIdentities wraps the list in an object so the response can grow
// without breaking clients. Provider tokens are never part of it.
func (m *Module) listIdentities(ctx handler.Context, _ struct{}) handler.Response {
	ids, err := m.svc.ListIdentities(ctx, currentUser(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]any{"identities": ids})
}

// uploadAvatar stores the image under a fresh key and points the profile at
// it. The object is removed again when the profile update fails.
func (m *Module) uploadAvatar(ctx handler.Context, req avatarRequest) handler.Response {
	if m.avatars == nil {
		return handler.Error(handler.ErrNotFound)
	}
	if req.Avatar == nil {
		return handler.Error(errAvatarMissing)
	}

	f, err := req.Avatar.Open()
	if err != nil {
		return handler.Error(fmt.Errorf("open avatar: %w", err))
	}
	defer f.Close()

	// The type is sniffed from the bytes; the client supplied header is ignored.
	data, err := file.ReadLimited(f, m.cfg.AvatarMaxBytes)
	if err != nil {
		return handler.Error(err)
	}
	contentType, err := file.ValidateMIMEType(data, file.ImageMIMETypes...)
	if err != nil {
		return handler.Error(err)
	}

	userID := currentUser(ctx)
	// A fresh key per upload keeps CDN caches from serving the old image.
	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), file.Extension(contentType))
	avatarURL, err := m.avatars.Put(ctx, key, contentType, data)
	if err != nil {
		return handler.Error(err)
	}

	u, err := m.svc.UpdateAvatar(ctx, userID, avatarURL)
	if err != nil {
		if derr := m.avatars.Delete(context.WithoutCancel(ctx), key); derr != nil {
			m.log.WarnContext(ctx, "remove orphaned avatar", logger.UserID(userID), logger.Error(derr))
		}
		return handler.Error(err)
	}
	return handler.JSON(u)
}
