package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"objbase.io/objbase/internal/api/middleware"
	"objbase.io/objbase/internal/auth"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/pkg/logger"
)

// cookieMaxAge matches the session lifetime.
const cookieMaxAge = int(auth.SessionTTL / time.Second)

// Auth handles the legacy auth action: verifies credentials, rotates the
// opaque token, sets the namespace cookies, and answers in the one-element
// array shape legacy clients parse.
func (s *Server) Auth(c *gin.Context) {
	middleware.MarkLegacyAuth(c)
	ns := c.Param("ns")

	username := firstOf(c, "user", "name", "login")
	password := firstOf(c, "password", "pass")

	session, err := s.auth.Login(c.Request.Context(), ns, username, password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	setSessionCookies(c, ns, session)
	logger.Info("login",
		zap.String("ns", ns),
		zap.String("user", session.Identity.Name),
	)

	c.JSON(http.StatusOK, []gin.H{{
		"token": session.Token,
		"jwt":   session.Structured,
		"xsrf":  session.XSRF,
		"id":    session.Identity.UserID,
		"name":  session.Identity.Name,
		"role":  string(session.Identity.Role),
	}})
}

// Logout clears the session cookies and invalidates the opaque token.
func (s *Server) Logout(c *gin.Context) {
	ns := c.Param("ns")
	if id, ok := middleware.GetIdentity(c); ok {
		if err := s.auth.Logout(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			return
		}
	}
	clearSessionCookies(c, ns)
	render(c, gin.H{"ok": true})
}

// WhoAmI reports the resolved identity of the caller.
func (s *Server) WhoAmI(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeTokenInvalid, "not authenticated"))
		return
	}
	render(c, gin.H{
		"ns":   id.Namespace,
		"id":   id.UserID,
		"name": id.Name,
		"role": string(id.Role),
	})
}

// AddUser creates a namespace user. Admin only.
func (s *Server) AddUser(c *gin.Context) {
	ns := c.Param("ns")
	actor, ok := middleware.GetIdentity(c)
	if !ok || !actor.Role.Allows(auth.RoleAdmin) {
		_ = c.Error(apperrors.Forbidden(apperrors.CodeRoleDenied, "admin role required"))
		return
	}

	username := firstOf(c, "user", "name")
	password := firstOf(c, "password", "pass")
	role := auth.Role(firstOf(c, "role"))
	if role == "" {
		role = auth.RoleReader
	}

	id, err := s.auth.AddUser(c.Request.Context(), ns, username, password, role)
	if err != nil {
		_ = c.Error(err)
		return
	}
	render(c, gin.H{"ok": true, "id": id})
}

// Passwd resets a user's password. Admin only; users change their own
// password through the same action with their own name.
func (s *Server) Passwd(c *gin.Context) {
	ns := c.Param("ns")
	actor, ok := middleware.GetIdentity(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeTokenInvalid, "not authenticated"))
		return
	}

	username := firstOf(c, "user", "name")
	if username == "" {
		username = actor.Name
	}
	if username != actor.Name && !actor.Role.Allows(auth.RoleAdmin) {
		_ = c.Error(apperrors.Forbidden(apperrors.CodeRoleDenied, "admin role required"))
		return
	}

	if err := s.auth.SetPassword(c.Request.Context(), ns, username, firstOf(c, "password", "pass")); err != nil {
		_ = c.Error(err)
		return
	}
	render(c, gin.H{"ok": true})
}

// CreateBase bootstraps a new namespace with its admin user. Guarded by the
// deployment boot secret rather than a namespace role.
func (s *Server) CreateBase(c *gin.Context) {
	if s.bootSecret == "" || firstOf(c, "secret") != s.bootSecret {
		_ = c.Error(apperrors.Forbidden(apperrors.CodeRoleDenied, "namespace creation is not allowed"))
		return
	}

	ns := firstOf(c, "ns", "base")
	username := firstOf(c, "user", "name")
	password := firstOf(c, "password", "pass")

	if err := s.auth.CreateBase(c.Request.Context(), ns, username, password); err != nil {
		_ = c.Error(err)
		return
	}
	logger.Info("namespace created", zap.String("ns", ns), zap.String("admin", username))
	render(c, gin.H{"ok": true, "ns": ns})
}

func setSessionCookies(c *gin.Context, ns string, session auth.Session) {
	c.SetCookie(ns, session.Token, cookieMaxAge, "/", "", false, true)
	// The XSRF cookie is read by scripts, so it stays visible to JS.
	c.SetCookie(ns+"_xsrf", session.XSRF, cookieMaxAge, "/", "", false, false)
}

func clearSessionCookies(c *gin.Context, ns string) {
	c.SetCookie(ns, "", -1, "/", "", false, true)
	c.SetCookie(ns+"_xsrf", "", -1, "/", "", false, false)
}

// firstOf returns the first non-empty query or form value among keys.
func firstOf(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := c.Query(key); v != "" {
			return v
		}
		if v := c.PostForm(key); v != "" {
			return v
		}
	}
	return ""
}
