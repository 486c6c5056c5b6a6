package account

import (
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/svc/auth"
)

type listUsersRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

type setRoleRequest struct {
	Role auth.Role `json:"role"`
}

// listUsers pages through users. Limits are clamped by the service.
func (m *Module) listUsers(ctx handler.Context, req listUsersRequest) handler.Response {
	page, err := m.svc.ListUsers(ctx, currentUser(ctx), req.Limit, req.Offset)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(page)
}

// setUserRole leaves every rank rule to the service; the route only needs
// a parseable id.
func (m *Module) setUserRole(ctx handler.Context, req setRoleRequest) handler.Response {
	target, err := uuid.Parse(chi.URLParam(ctx.Request(), "id"))
	if err != nil {
		return handler.Error(errInvalidUserID)
	}
	u, err := m.svc.SetUserRole(ctx, currentUser(ctx), target, req.Role)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(u)
}
