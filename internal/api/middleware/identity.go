package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"objbase.io/objbase/internal/auth"
	"objbase.io/objbase/internal/pkg/logger"
)

// Resolver turns a raw token into an authenticated identity.
type Resolver interface {
	Resolve(ctx context.Context, ns, token string) (auth.Identity, error)
}

// tokenParamActions are the legacy actions that may carry the token as a
// plain query/body parameter. Everything else must use a cookie or header.
var tokenParamActions = map[string]bool{
	"auth":   true,
	"term":   true,
	"report": true,
}

const (
	ctxKeyRawToken    = "auth_raw_token"
	ctxKeyCookieToken = "auth_from_cookie"
)

// RawToken returns the token the identity was resolved from.
func RawToken(c *gin.Context) string {
	return c.GetString(ctxKeyRawToken)
}

// TokenFromCookie reports whether the token arrived in the namespace cookie.
// Cookie sessions need an XSRF check on mutating requests.
func TokenFromCookie(c *gin.Context) bool {
	return c.GetBool(ctxKeyCookieToken)
}

// Identity resolves the caller from the request and stores it in context.
// Anonymous requests pass through; role checks happen downstream.
//
// Token precedence: namespace cookie, Authorization header (with or without
// the Bearer prefix), X-Authorization header, then the token parameter for
// the legacy actions that allow it.
func Identity(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ns := c.Param("ns")
		token, fromCookie := extractToken(c, ns)
		if token == "" {
			c.Next()
			return
		}
		c.Set(ctxKeyRawToken, token)
		c.Set(ctxKeyCookieToken, fromCookie)
		id, err := resolver.Resolve(c.Request.Context(), ns, token)
		if err != nil {
			// A stale token is treated as anonymous, not as a hard error.
			logger.Debug("token resolve failed",
				zap.String("ns", ns),
				zap.Error(err),
			)
			c.Next()
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

func extractToken(c *gin.Context, ns string) (token string, fromCookie bool) {
	if ns != "" {
		if cookie, err := c.Cookie(ns); err == nil && cookie != "" {
			return cookie, true
		}
	}
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), false
	}
	if h := c.GetHeader("X-Authorization"); h != "" {
		return h, false
	}
	if allowsTokenParam(c) {
		if t := c.Query("token"); t != "" {
			return t, false
		}
		if t := c.PostForm("token"); t != "" {
			return t, false
		}
	}
	return "", false
}

func allowsTokenParam(c *gin.Context) bool {
	for key := range c.Request.URL.Query() {
		if tokenParamActions[key] {
			return true
		}
	}
	return false
}
