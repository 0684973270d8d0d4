// Package middleware provides HTTP middleware for the object base server.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"objbase.io/objbase/internal/auth"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyIdentity  contextKey = "identity"
)

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetIdentity stores the authenticated identity in the gin and request
// contexts.
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(string(ctxKeyIdentity), id)
	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ctxKeyIdentity, id),
	)
}

// GetIdentity returns the authenticated identity, if any.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(string(ctxKeyIdentity))
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
