package app

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"objbase.io/objbase/internal/api/handlers"
	"objbase.io/objbase/internal/api/middleware"
	"objbase.io/objbase/internal/config"
	"objbase.io/objbase/internal/pkg/logger"
)

const loginPage = `<html><body>
<form method="post">
<input name="user" placeholder="user">
<input name="password" type="password" placeholder="password">
<input type="hidden" name="auth" value="1">
<button type="submit">Sign in</button>
</form>
</body></html>`

func newRouter(cfg *config.Config, server *handlers.Server, resolver middleware.Resolver) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		cors.New(buildCORSConfig(cfg.Server.CORSOrigins)),
		middleware.Negotiate(),
		middleware.ErrorHandler(),
		middleware.Timeout(cfg.Database.StatementTimeout),
	)

	router.GET("/healthz", server.Healthz)
	router.GET("/readyz", server.Readyz)
	router.GET("/login", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
	})
	router.POST("/create_base", server.CreateBase)

	// Runtime log level control, zap's handler as-is.
	router.Any("/admin/loglevel", gin.WrapH(logger.HTTPHandler()))

	ns := router.Group("/:ns", middleware.Identity(resolver))
	ns.GET("", server.Action)
	ns.POST("", server.Action)

	return router
}

// buildCORSConfig allows the configured origins; a bare "*" entry switches
// to allow-all without credentials.
func buildCORSConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders,
		"Authorization", "X-Authorization", "X-Requested-With", "X-XSRF-Token")
	c.AllowCredentials = true
	for _, origin := range origins {
		if origin == "*" {
			c.AllowAllOrigins = true
			c.AllowOrigins = nil
			c.AllowCredentials = false
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}
