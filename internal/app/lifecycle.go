package app

import (
	"objbase.io/objbase/internal/pkg/logger"
)

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	if a.Workers != nil {
		a.Workers.Shutdown()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	logger.Info("application components stopped")
}
