package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"objbase.io/objbase/internal/pkg/logger"
)

// The sibling-order constraint is deferred so MoveUp can swap two ord values
// inside one transaction without tripping it mid-swap.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS namespaces (
		name TEXT PRIMARY KEY,
		next_id BIGINT NOT NULL DEFAULT 100,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS objects (
		ns TEXT NOT NULL REFERENCES namespaces (name),
		id BIGINT NOT NULL,
		val TEXT NOT NULL DEFAULT '',
		up BIGINT NOT NULL DEFAULT 0,
		ord INT NOT NULL DEFAULT 0,
		typ BIGINT NOT NULL,
		PRIMARY KEY (ns, id),
		CONSTRAINT objects_sibling_ord UNIQUE (ns, up, typ, ord) DEFERRABLE INITIALLY DEFERRED
	)`,
	`CREATE INDEX IF NOT EXISTS idx_objects_typ ON objects (ns, typ, ord, id)`,
	`CREATE INDEX IF NOT EXISTS idx_objects_up ON objects (ns, up, ord, id)`,
	`CREATE TABLE IF NOT EXISTS users (
		ns TEXT NOT NULL REFERENCES namespaces (name),
		id BIGINT NOT NULL,
		name TEXT NOT NULL,
		digest CHAR(40) NOT NULL,
		token CHAR(32),
		role TEXT NOT NULL DEFAULT 'reader',
		PRIMARY KEY (ns, id),
		CONSTRAINT users_name UNIQUE (ns, name),
		CONSTRAINT users_token UNIQUE (ns, token)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		ns TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		object_id BIGINT NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT '',
		at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_ns_at ON audit_log (ns, at)`,
}

// Migrate creates the schema. Only use in development; production deploys
// run the same statements through migration tooling.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return mapPGError(err, "migrate")
		}
	}
	logger.Info("Schema migration completed")
	return nil
}
