package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
)

func newMock(t *testing.T) (*PG, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewPGFromQuerier(mock), mock
}

func uniqueViolation() *pgconn.PgError {
	return &pgconn.PgError{Code: "23505", ConstraintName: "objects_pkey"}
}

func TestPGObjects_NextID(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE namespaces SET next_id = next_id \+ 1`).
		WithArgs("demo").
		WillReturnRows(pgxmock.NewRows([]string{"next_id"}).AddRow(int64(205)))

	id, err := repo.Objects().NextID(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(205), id)
}

func TestPGObjects_NextID_UnknownNamespace(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`UPDATE namespaces SET next_id = next_id \+ 1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Objects().NextID(context.Background(), "ghost")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNamespaceNotFound, appErr.Code)
}

func TestPGObjects_Get(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, val, up, ord, typ FROM objects WHERE ns = \$1 AND id = \$2`).
		WithArgs("demo", int64(200)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "val", "up", "ord", "typ"}).
			AddRow(int64(200), "Person", int64(domain.TypeUp), 1, int64(domain.KindTable)))

	obj, err := repo.Objects().Get(context.Background(), "demo", 200)
	require.NoError(t, err)
	assert.Equal(t, "Person", obj.Val)
	assert.Equal(t, int64(domain.TypeUp), obj.Up)
}

func TestPGObjects_Get_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, val, up, ord, typ FROM objects`).
		WithArgs("demo", int64(999)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Objects().Get(context.Background(), "demo", 999)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeObjectNotFound, appErr.Code)
}

func TestPGObjects_Insert_Duplicate(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO objects`).
		WithArgs("demo", int64(200), "Person", int64(domain.TypeUp), 1, int64(domain.KindTable)).
		WillReturnError(uniqueViolation())

	err := repo.Objects().Insert(context.Background(), "demo", domain.Object{
		ID: 200, Val: "Person", Up: domain.TypeUp, Ord: 1, Typ: int64(domain.KindTable),
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeDuplicateOrder, appErr.Code)
}

func TestPGObjects_ListByUp(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, val, up, ord, typ FROM objects\s+WHERE ns = \$1 AND up = \$2 ORDER BY ord, id`).
		WithArgs("demo", int64(200), MaxPageSize).
		WillReturnRows(pgxmock.NewRows([]string{"id", "val", "up", "ord", "typ"}).
			AddRow(int64(201), "Name", int64(200), 1, int64(domain.KindString)).
			AddRow(int64(202), "Email", int64(200), 2, int64(domain.KindString)))

	objs, err := repo.Objects().ListByUp(context.Background(), "demo", 200)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "Name", objs[0].Val)
	assert.Equal(t, "Email", objs[1].Val)
}

func TestPGObjects_ListByTyp_SkipsDefinitionRows(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, val, up, ord, typ FROM objects\s+WHERE ns = \$1 AND typ = \$2 AND NOT EXISTS \(\s+SELECT 1 FROM objects t\s+WHERE t\.ns = objects\.ns AND t\.id = objects\.up\s+AND t\.up = 1 AND t\.typ BETWEEN 1 AND 8\)\s+ORDER BY ord, id`).
		WithArgs("demo", int64(200), MaxPageSize, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "val", "up", "ord", "typ"}).
			AddRow(int64(220), "Alice", int64(0), 1, int64(200)))

	objs, err := repo.Objects().ListByTyp(context.Background(), "demo", 200, Page{})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "Alice", objs[0].Val)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM objects WHERE ns = \$1 AND typ = \$2 AND NOT EXISTS`).
		WithArgs("demo", int64(200)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	n, err := repo.Objects().CountByTyp(context.Background(), "demo", 200)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPGObjects_SetVal_Missing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE objects SET val = \$3`).
		WithArgs("demo", int64(999), "x").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Objects().SetVal(context.Background(), "demo", 999, "x")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeObjectNotFound, appErr.Code)
}

func TestPGUsers_Insert_DuplicateName(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("demo", int64(100), "admin", "digest", "", "admin").
		WillReturnError(uniqueViolation())

	err := repo.Users().Insert(context.Background(), "demo", User{
		ID: 100, Name: "admin", Digest: "digest", Role: "admin",
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUserExists, appErr.Code)
}

func TestPGNamespaces_Create_Exists(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO namespaces`).
		WithArgs("demo", int64(domain.FirstUserID)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := repo.Namespaces().Create(context.Background(), "demo")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNamespaceExists, appErr.Code)
}

func TestPG_WithTx_CommitAndRollback(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("demo", "admin", "create", int64(205), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.WithTx(ctx, func(tx Repo) error {
		return tx.Audit().Append(ctx, "demo", "admin", "create", 205, "")
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = repo.WithTx(ctx, func(Repo) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPG_WithTx_Nested(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("demo", "admin", "save", int64(1), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.WithTx(ctx, func(tx Repo) error {
		// An inner WithTx reuses the open transaction.
		return tx.WithTx(ctx, func(inner Repo) error {
			return inner.Audit().Append(ctx, "demo", "admin", "save", 1, "")
		})
	})
	require.NoError(t, err)
}
