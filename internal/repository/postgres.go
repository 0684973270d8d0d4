package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "objbase.io/objbase/internal/pkg/errors"
)

// Querier is the subset of pgx used by the repositories. Satisfied by
// *pgxpool.Pool, pgx.Tx, and pgxmock pools, so the same code runs in
// production, inside transactions, and under mock-backed tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// beginner starts transactions. *pgxpool.Pool and pgxmock pools qualify.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PG is the PostgreSQL-backed Repo.
type PG struct {
	q Querier
	b beginner // nil inside a transaction
}

// NewPG creates a Repo over a shared pgx pool.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{q: pool, b: pool}
}

// NewPGFromQuerier creates a Repo over any Querier+beginner, used by
// pgxmock tests.
func NewPGFromQuerier(q Querier) *PG {
	pg := &PG{q: q}
	if b, ok := q.(beginner); ok {
		pg.b = b
	}
	return pg
}

// Objects returns the arena repository.
func (p *PG) Objects() Objects { return &pgObjects{q: p.q} }

// Users returns the account repository.
func (p *PG) Users() Users { return &pgUsers{q: p.q} }

// Namespaces returns the namespace catalog repository.
func (p *PG) Namespaces() Namespaces { return &pgNamespaces{q: p.q} }

// Audit returns the audit trail repository.
func (p *PG) Audit() Audit { return &pgAudit{q: p.q} }

// WithTx runs fn against a transaction-scoped Repo. Nested calls reuse the
// surrounding transaction.
func (p *PG) WithTx(ctx context.Context, fn func(Repo) error) error {
	if p.b == nil {
		// Already inside a transaction.
		return fn(p)
	}

	tx, err := p.b.Begin(ctx)
	if err != nil {
		return apperrors.StoreUnavailable("begin transaction", err)
	}

	txRepo := &PG{q: tx}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPGError(err, "commit transaction")
	}
	return nil
}

// mapPGError maps driver errors onto the application taxonomy.
func mapPGError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(apperrors.CodeObjectNotFound, op+": no rows")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return apperrors.Wrap(err, apperrors.CodeDuplicateOrder,
				op+": unique constraint violation", 409)
		case "23503": // foreign_key_violation
			return apperrors.Wrap(err, apperrors.CodeNamespaceNotFound,
				op+": referenced row missing", 404)
		}
	}
	return apperrors.StoreUnavailable(op, err)
}
