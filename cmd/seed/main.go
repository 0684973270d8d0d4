// Package main provides data seeding for the object base server.
//
// It creates a demo namespace with an admin user and a small Person/Email
// schema. All steps are idempotent; rerunning against an existing namespace
// is a no-op.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"objbase.io/objbase/internal/auth"
	"objbase.io/objbase/internal/config"
	"objbase.io/objbase/internal/domain"
	"objbase.io/objbase/internal/infrastructure"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/pkg/logger"
	"objbase.io/objbase/internal/repository"
	"objbase.io/objbase/internal/schema"
	"objbase.io/objbase/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ns := flag.String("ns", "demo", "namespace to create")
	admin := flag.String("admin", "admin", "admin user name")
	password := flag.String("password", "admin", "admin password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := infrastructure.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer pool.Close()

	repo := repository.NewPG(pool)
	tokens := auth.NewTokenManager([]byte(cfg.Security.TokenSecret), cfg.Security.TokenIssuer)
	authSvc := auth.NewService(repo, tokens)

	logger.Info("Seeding demo namespace", zap.String("ns", *ns))

	if err := authSvc.CreateBase(ctx, *ns, *admin, *password); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.CodeNamespaceExists {
			logger.Info("namespace exists, skipping seed", zap.String("ns", *ns))
			return nil
		}
		return fmt.Errorf("create namespace: %w", err)
	}

	if err := seedSchema(ctx, repo, *ns); err != nil {
		return fmt.Errorf("seed schema: %w", err)
	}

	logger.Info("Seeding complete", zap.String("ns", *ns), zap.String("admin", *admin))
	return nil
}

// seedSchema creates a Person type with name, email (multi) and manager
// (reference) requisites plus two sample persons.
func seedSchema(ctx context.Context, repo repository.Repo, ns string) error {
	registry := schema.NewRegistry(repo)
	objects := store.NewStore(repo)

	personID, err := registry.CreateType(ctx, ns, "Person", domain.KindTable, false)
	if err != nil {
		return err
	}
	nameID, err := registry.AddRequisite(ctx, ns, personID, domain.KindString, "Name")
	if err != nil {
		return err
	}
	if err := registry.SetRequired(ctx, ns, nameID, true); err != nil {
		return err
	}
	emailID, err := registry.AddRequisite(ctx, ns, personID, domain.KindString, "Email")
	if err != nil {
		return err
	}
	if err := registry.SetMulti(ctx, ns, emailID, true); err != nil {
		return err
	}
	managerID, err := registry.CreateReference(ctx, ns, personID, personID, "Manager")
	if err != nil {
		return err
	}

	aliceID, err := objects.CreateObject(ctx, ns, personID, "Alice", 0, nil)
	if err != nil {
		return err
	}
	if err := objects.SaveObject(ctx, ns, aliceID, nil, map[int64][]string{
		nameID:  {"Alice Cooper"},
		emailID: {"alice@example.com", "a.cooper@example.com"},
	}); err != nil {
		return err
	}

	bobID, err := objects.CreateObject(ctx, ns, personID, "Bob", 0, nil)
	if err != nil {
		return err
	}
	return objects.SaveObject(ctx, ns, bobID, nil, map[int64][]string{
		nameID:    {"Bob Marley"},
		emailID:   {"bob@example.com"},
		managerID: {fmt.Sprintf("%d", aliceID)},
	})
}
