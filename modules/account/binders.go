package account

import (
	"net/http"

	"github.com/dmitrymomot/authsvc/handler"
	"github.com/dmitrymomot/authsvc/pkg/binder"
)

// multipartOverhead covers boundaries and part headers around the avatar.
const multipartOverhead = 64 << 10

var queryBinder handler.Bind = binder.Query()

func (m *Module) jsonBody() handler.Bind {
	return binder.JSON(m.cfg.MaxBodyBytes)
}

// optionalJSONBody accepts an empty body so cookie-only clients can call
// refresh and logout.
func (m *Module) optionalJSONBody() handler.Bind {
	bind := binder.JSON(m.cfg.MaxBodyBytes)
	return func(r *http.Request, v any) error {
		if r.ContentLength == 0 {
			return nil
		}
		return bind(r, v)
	}
}

func (m *Module) avatarBody() handler.Bind {
	return binder.File(m.cfg.AvatarMaxBytes+multipartOverhead, 1<<20)
}
