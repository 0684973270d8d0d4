// Package app is the composition root. Bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"objbase.io/objbase/internal/api/handlers"
	"objbase.io/objbase/internal/audit"
	"objbase.io/objbase/internal/auth"
	"objbase.io/objbase/internal/config"
	"objbase.io/objbase/internal/dispatch"
	"objbase.io/objbase/internal/infrastructure"
	"objbase.io/objbase/internal/pkg/worker"
	"objbase.io/objbase/internal/projection"
	"objbase.io/objbase/internal/report"
	"objbase.io/objbase/internal/repository"
	"objbase.io/objbase/internal/schema"
	"objbase.io/objbase/internal/store"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	Pool    *pgxpool.Pool
	Workers *worker.Pool
	Auth    *auth.Service
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	pool, err := infrastructure.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	workers, err := worker.NewPool(ctx, "audit", cfg.Worker.AuditPoolSize)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init worker pool: %w", err)
	}

	repo := repository.NewPG(pool)
	registry := schema.NewRegistry(repo)
	objects := store.NewStore(repo)
	proj := projection.NewEngine(registry, objects)

	defs, err := report.LoadDefinitions(cfg.Report.Path)
	if err != nil {
		workers.Shutdown()
		pool.Close()
		return nil, fmt.Errorf("load reports: %w", err)
	}
	reports := report.NewRunner(defs, pool)

	tokens := auth.NewTokenManager([]byte(cfg.Security.TokenSecret), cfg.Security.TokenIssuer)
	authSvc := auth.NewService(repo, tokens)

	auditLog := audit.NewLogger(repo, workers)
	dispatcher := dispatch.NewDispatcher(registry, objects, proj, reports, auditLog)

	server := handlers.NewServer(handlers.ServerDeps{
		Dispatcher: dispatcher,
		Auth:       authSvc,
		Pool:       pool,
		Workers:    workers,
		BootSecret: cfg.Security.BootSecret,
	})

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server, authSvc),
		Pool:    pool,
		Workers: workers,
		Auth:    authSvc,
	}, nil
}
