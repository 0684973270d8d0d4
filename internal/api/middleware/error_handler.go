package middleware

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/pkg/logger"
)

// ctxKeyLegacyAuth marks a request served by the legacy auth action, whose
// clients expect error bodies wrapped in a one-element array.
const ctxKeyLegacyAuth = "legacy_auth_shape"

// MarkLegacyAuth switches error rendering to the legacy array shape for the
// current request.
func MarkLegacyAuth(c *gin.Context) {
	c.Set(ctxKeyLegacyAuth, true)
}

// ErrorHandler captures errors added via c.Error() and renders them in the
// negotiated format. JSON clients get {"error": ..., "code": ...}; HTML
// clients get a redirect to /login on auth failures and a plain error page
// otherwise.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := http.StatusInternalServerError
		code := apperrors.CodeInternal
		message := "internal error"

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			status = appErr.HTTPStatus
			code = appErr.Code
			message = appErr.Message
			logger.Warn("request error",
				zap.String("request_id", GetRequestID(c.Request.Context())),
				zap.String("code", code),
				zap.Int("status", status),
				zap.Error(appErr.Err),
			)
		} else {
			logger.Error("unhandled request error",
				zap.String("request_id", GetRequestID(c.Request.Context())),
				zap.Error(err),
			)
		}

		if c.GetBool(ctxKeyLegacyAuth) {
			c.JSON(status, []gin.H{{"error": message, "code": code}})
			return
		}
		if FormatOf(c).IsJSON() {
			c.JSON(status, gin.H{"error": message, "code": code})
			return
		}
		if status == http.StatusUnauthorized {
			c.Redirect(http.StatusFound, "/login")
			return
		}
		page := fmt.Sprintf("<html><body><h1>%d</h1><p>%s</p></body></html>",
			status, html.EscapeString(message))
		c.Data(status, "text/html; charset=utf-8", []byte(page))
	}
}
