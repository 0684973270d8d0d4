// Package testutil provides shared helpers for repository and service tests.
package testutil

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"objbase.io/objbase/internal/repository"
)

// NewMockRepo returns a repository backed by a pgxmock pool. Expectations
// are verified on cleanup.
func NewMockRepo(t *testing.T) (*repository.PG, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock.NewPool() error = %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet pgxmock expectations: %v", err)
		}
		mock.Close()
	})

	return repository.NewPGFromQuerier(mock), mock
}
