package repository

import (
	"context"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
)

type pgNamespaces struct {
	q Querier
}

func (r *pgNamespaces) Create(ctx context.Context, ns string) error {
	tag, err := r.q.Exec(ctx,
		`INSERT INTO namespaces (name, next_id) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		ns, int64(domain.FirstUserID))
	if err != nil {
		return mapPGError(err, "create namespace")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict(apperrors.CodeNamespaceExists, "namespace already exists: "+ns)
	}
	return nil
}

func (r *pgNamespaces) Exists(ctx context.Context, ns string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM namespaces WHERE name = $1)`, ns).Scan(&ok)
	if err != nil {
		return false, mapPGError(err, "namespace exists")
	}
	return ok, nil
}

type pgAudit struct {
	q Querier
}

func (r *pgAudit) Append(ctx context.Context, ns, actor, action string, objectID int64, detail string) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO audit_log (ns, actor, action, object_id, detail) VALUES ($1, $2, $3, $4, $5)`,
		ns, actor, action, objectID, detail)
	return mapPGError(err, "append audit record")
}
