package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	apperrors "objbase.io/objbase/internal/pkg/errors"
)

type pgUsers struct {
	q Querier
}

const userColumns = "id, name, digest, COALESCE(token, ''), role"

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Digest, &u.Token, &u.Role)
	return u, err
}

func (r *pgUsers) GetByName(ctx context.Context, ns, name string) (User, error) {
	u, err := scanUser(r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE ns = $1 AND LOWER(name) = LOWER($2)`,
		ns, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return User{}, apperrors.NotFound(apperrors.CodeUserNotFound, "user not found")
		}
		return User{}, mapPGError(err, "get user by name")
	}
	return u, nil
}

func (r *pgUsers) GetByToken(ctx context.Context, ns, token string) (User, error) {
	u, err := scanUser(r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE ns = $1 AND token = $2`, ns, token))
	if err != nil {
		if err == pgx.ErrNoRows {
			return User{}, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "unknown token")
		}
		return User{}, mapPGError(err, "get user by token")
	}
	return u, nil
}

func (r *pgUsers) Insert(ctx context.Context, ns string, u User) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO users (ns, id, name, digest, token, role) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		ns, u.ID, u.Name, u.Digest, u.Token, u.Role)
	if appErr, ok := apperrors.IsAppError(mapPGError(err, "insert user")); ok {
		if appErr.Code == apperrors.CodeDuplicateOrder {
			// Unique violation here is a duplicate name or token collision.
			return apperrors.Conflict(apperrors.CodeUserExists, "user name or token already taken")
		}
		return appErr
	}
	return nil
}

func (r *pgUsers) SetDigest(ctx context.Context, ns string, id int64, digest string) error {
	return r.execOne(ctx, "set digest",
		`UPDATE users SET digest = $3 WHERE ns = $1 AND id = $2`, ns, id, digest)
}

func (r *pgUsers) SetToken(ctx context.Context, ns string, id int64, token string) error {
	return r.execOne(ctx, "set token",
		`UPDATE users SET token = NULLIF($3, '') WHERE ns = $1 AND id = $2`, ns, id, token)
}

func (r *pgUsers) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return mapPGError(err, op)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(apperrors.CodeUserNotFound, op+": user not found")
	}
	return nil
}
