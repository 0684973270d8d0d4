package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz handles GET /healthz, the liveness probe.
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz handles GET /readyz. It pings the database and reports the worker
// pool state.
func (s *Server) Readyz(c *gin.Context) {
	checks := make(map[string]string)
	healthy := true

	if err := s.pool.Ping(c.Request.Context()); err != nil {
		checks["database"] = "error"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if s.workers != nil {
		m := s.workers.Metrics()
		if m["cap"] > 0 && m["free"] == 0 {
			checks["workers"] = "saturated"
		} else {
			checks["workers"] = "ok"
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{"status": status, "checks": checks})
}
