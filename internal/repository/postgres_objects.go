package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
)

type pgObjects struct {
	q Querier
}

const objectColumns = "id, val, up, ord, typ"

// A reference requisite's definition row carries its target type id in typ,
// so a plain typ match would mix it into that type's data objects. Listings
// by typ skip any row whose parent is a type-defining row.
const notDefinitionRow = ` AND NOT EXISTS (
		SELECT 1 FROM objects t
		WHERE t.ns = objects.ns AND t.id = objects.up
		  AND t.up = 1 AND t.typ BETWEEN 1 AND 8)`

func scanObject(row pgx.Row) (domain.Object, error) {
	var o domain.Object
	err := row.Scan(&o.ID, &o.Val, &o.Up, &o.Ord, &o.Typ)
	return o, err
}

func collectObjects(rows pgx.Rows) ([]domain.Object, error) {
	defer rows.Close()
	var out []domain.Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *pgObjects) NextID(ctx context.Context, ns string) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`UPDATE namespaces SET next_id = next_id + 1 WHERE name = $1 RETURNING next_id - 1`,
		ns).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, apperrors.NotFound(apperrors.CodeNamespaceNotFound, "namespace not found: "+ns)
		}
		return 0, mapPGError(err, "allocate id")
	}
	return id, nil
}

func (r *pgObjects) Get(ctx context.Context, ns string, id int64) (domain.Object, error) {
	o, err := scanObject(r.q.QueryRow(ctx,
		`SELECT `+objectColumns+` FROM objects WHERE ns = $1 AND id = $2`, ns, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Object{}, apperrors.NotFound(apperrors.CodeObjectNotFound, "object not found")
		}
		return domain.Object{}, mapPGError(err, "get object")
	}
	return o, nil
}

func (r *pgObjects) Insert(ctx context.Context, ns string, o domain.Object) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO objects (ns, id, val, up, ord, typ) VALUES ($1, $2, $3, $4, $5, $6)`,
		ns, o.ID, o.Val, o.Up, o.Ord, o.Typ)
	return mapPGError(err, "insert object")
}

func (r *pgObjects) SetVal(ctx context.Context, ns string, id int64, val string) error {
	return r.execOne(ctx, "set val",
		`UPDATE objects SET val = $3 WHERE ns = $1 AND id = $2`, ns, id, val)
}

func (r *pgObjects) SetOrd(ctx context.Context, ns string, id int64, ord int) error {
	return r.execOne(ctx, "set ord",
		`UPDATE objects SET ord = $3 WHERE ns = $1 AND id = $2`, ns, id, ord)
}

func (r *pgObjects) SetUp(ctx context.Context, ns string, id, up int64) error {
	return r.execOne(ctx, "set up",
		`UPDATE objects SET up = $3 WHERE ns = $1 AND id = $2`, ns, id, up)
}

// ReassignID moves an object to a new id and repoints every child row.
func (r *pgObjects) ReassignID(ctx context.Context, ns string, oldID, newID int64) error {
	if err := r.execOne(ctx, "reassign id",
		`UPDATE objects SET id = $3 WHERE ns = $1 AND id = $2`, ns, oldID, newID); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx,
		`UPDATE objects SET up = $3 WHERE ns = $1 AND up = $2`, ns, oldID, newID)
	if err != nil {
		return mapPGError(err, "reassign children")
	}
	_, err = r.q.Exec(ctx,
		`UPDATE objects SET typ = $3 WHERE ns = $1 AND typ = $2`, ns, oldID, newID)
	return mapPGError(err, "reassign typ references")
}

func (r *pgObjects) Delete(ctx context.Context, ns string, id int64) error {
	return r.execOne(ctx, "delete object",
		`DELETE FROM objects WHERE ns = $1 AND id = $2`, ns, id)
}

func (r *pgObjects) DeleteMany(ctx context.Context, ns string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`DELETE FROM objects WHERE ns = $1 AND id = ANY($2)`, ns, ids)
	return mapPGError(err, "delete objects")
}

func (r *pgObjects) ListByTyp(ctx context.Context, ns string, typ int64, page Page) ([]domain.Object, error) {
	page = page.Clamp()
	rows, err := r.q.Query(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE ns = $1 AND typ = $2`+notDefinitionRow+`
		 ORDER BY ord, id LIMIT $3 OFFSET $4`,
		ns, typ, page.Limit, page.Offset)
	if err != nil {
		return nil, mapPGError(err, "list by typ")
	}
	out, err := collectObjects(rows)
	if err != nil {
		return nil, mapPGError(err, "list by typ")
	}
	return out, nil
}

func (r *pgObjects) CountByTyp(ctx context.Context, ns string, typ int64) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM objects WHERE ns = $1 AND typ = $2`+notDefinitionRow, ns, typ).Scan(&n)
	if err != nil {
		return 0, mapPGError(err, "count by typ")
	}
	return n, nil
}

func (r *pgObjects) ListByUp(ctx context.Context, ns string, up int64) ([]domain.Object, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE ns = $1 AND up = $2 ORDER BY ord, id LIMIT $3`,
		ns, up, MaxPageSize)
	if err != nil {
		return nil, mapPGError(err, "list by up")
	}
	out, err := collectObjects(rows)
	if err != nil {
		return nil, mapPGError(err, "list by up")
	}
	return out, nil
}

func (r *pgObjects) ListByUpTyp(ctx context.Context, ns string, up, typ int64) ([]domain.Object, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE ns = $1 AND up = $2 AND typ = $3 ORDER BY ord, id LIMIT $4`,
		ns, up, typ, MaxPageSize)
	if err != nil {
		return nil, mapPGError(err, "list by up and typ")
	}
	out, err := collectObjects(rows)
	if err != nil {
		return nil, mapPGError(err, "list by up and typ")
	}
	return out, nil
}

func (r *pgObjects) MaxOrd(ctx context.Context, ns string, up, typ int64) (int, error) {
	var ord int
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(ord), 0) FROM objects WHERE ns = $1 AND up = $2 AND typ = $3`,
		ns, up, typ).Scan(&ord)
	if err != nil {
		return 0, mapPGError(err, "max ord")
	}
	return ord, nil
}

func (r *pgObjects) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return mapPGError(err, op)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(apperrors.CodeObjectNotFound, op+": object not found")
	}
	return nil
}
