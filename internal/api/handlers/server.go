// Package handlers implements the HTTP surface of the object base server.
// Every data and schema operation arrives as a legacy action request against
// a namespace; handlers translate it for the dispatcher and render the
// result in the negotiated format.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"objbase.io/objbase/internal/auth"
	"objbase.io/objbase/internal/dispatch"
	"objbase.io/objbase/internal/pkg/worker"
)

// Server holds all request handlers.
type Server struct {
	dispatcher *dispatch.Dispatcher
	auth       *auth.Service
	pool       *pgxpool.Pool
	workers    *worker.Pool
	bootSecret string
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Dispatcher *dispatch.Dispatcher
	Auth       *auth.Service
	Pool       *pgxpool.Pool
	Workers    *worker.Pool
	// BootSecret authorizes namespace creation. Empty disables create_base.
	BootSecret string
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		dispatcher: deps.Dispatcher,
		auth:       deps.Auth,
		pool:       deps.Pool,
		workers:    deps.Workers,
		bootSecret: deps.BootSecret,
	}
}

// requestParams merges query and form parameters into dispatch params.
// Query values come first so repeated keys keep a stable order.
func requestParams(c *gin.Context) dispatch.Params {
	params := dispatch.Params{}
	for key, values := range c.Request.URL.Query() {
		params[key] = append(params[key], values...)
	}
	if err := c.Request.ParseForm(); err == nil {
		for key, values := range c.Request.PostForm {
			params[key] = append(params[key], values...)
		}
	}
	return params
}
