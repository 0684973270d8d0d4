package handlers

import (
	"github.com/gin-gonic/gin"

	"objbase.io/objbase/internal/api/middleware"
	"objbase.io/objbase/internal/dispatch"
	apperrors "objbase.io/objbase/internal/pkg/errors"
)

// authActions are served by dedicated handlers instead of the dispatcher.
var authActions = map[string]func(*Server, *gin.Context){
	"auth":    (*Server).Auth,
	"logout":  (*Server).Logout,
	"whoami":  (*Server).WhoAmI,
	"adduser": (*Server).AddUser,
	"passwd":  (*Server).Passwd,
}

// Action is the single legacy endpoint of a namespace. The operation code
// arrives as a parameter key; auth actions short-circuit to their handlers,
// everything else goes through the dispatcher.
func (s *Server) Action(c *gin.Context) {
	params := requestParams(c)

	for code, handler := range authActions {
		if params.Has(code) {
			handler(s, c)
			return
		}
	}

	action, ok := dispatch.FindAction(params)
	if !ok {
		_ = c.Error(apperrors.ErrUnknownAction("none"))
		return
	}

	actor, authed := middleware.GetIdentity(c)
	if !authed {
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeTokenInvalid, "not authenticated"))
		return
	}

	// Cookie sessions prove request intent with the XSRF token.
	if dispatch.IsMutating(action) && middleware.TokenFromCookie(c) {
		xsrf := params.First("xsrf")
		if xsrf == "" {
			xsrf = c.GetHeader("X-XSRF-Token")
		}
		if err := s.auth.CheckXSRF(c.Param("ns"), middleware.RawToken(c), xsrf); err != nil {
			_ = c.Error(err)
			return
		}
	}

	result, err := s.dispatcher.Do(c.Request.Context(), dispatch.Request{
		NS:     c.Param("ns"),
		Actor:  actor,
		Action: action,
		Params: params,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	render(c, result)
}
