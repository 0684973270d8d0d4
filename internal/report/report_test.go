package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	apperrors "objbase.io/objbase/internal/pkg/errors"
)

const sampleDefs = `
reports:
  - id: 1
    name: count_by_type
    sql: "SELECT typ, COUNT(*) AS n FROM objects WHERE ns = $1 GROUP BY typ"
    params: [ns]
  - id: 2
    name: objects_of_type
    sql: "SELECT id, val FROM objects WHERE ns = $1 AND typ = $2 ORDER BY ord"
    params: [ns, typ]
`

func writeDefs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefinitions(t *testing.T) {
	defs, err := LoadDefinitions(writeDefs(t, sampleDefs))
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Name != "count_by_type" || defs[0].ID != 1 {
		t.Errorf("defs[0] = %+v", defs[0])
	}
	if len(defs[1].Params) != 2 || defs[1].Params[1] != "typ" {
		t.Errorf("defs[1].Params = %v", defs[1].Params)
	}
}

func TestLoadDefinitions_MissingFile(t *testing.T) {
	defs, err := LoadDefinitions(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v for missing file", err)
	}
	if defs != nil {
		t.Errorf("defs = %v, want nil", defs)
	}
}

func TestLoadDefinitions_BadYAML(t *testing.T) {
	if _, err := LoadDefinitions(writeDefs(t, ":\nnot yaml [")); err == nil {
		t.Error("LoadDefinitions() error = nil for malformed file")
	}
}

func TestRunner_Find(t *testing.T) {
	defs, err := LoadDefinitions(writeDefs(t, sampleDefs))
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	runner := NewRunner(defs, nil)

	if def, ok := runner.Find("2"); !ok || def.Name != "objects_of_type" {
		t.Errorf("Find(2) = %+v, %v", def, ok)
	}
	if def, ok := runner.Find("count_by_type"); !ok || def.ID != 1 {
		t.Errorf("Find(count_by_type) = %+v, %v", def, ok)
	}
	if _, ok := runner.Find("nope"); ok {
		t.Error("Find(nope) = true")
	}
}

func TestRunner_Run(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock.NewPool() error = %v", err)
	}
	defer mock.Close()

	defs, err := LoadDefinitions(writeDefs(t, sampleDefs))
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	runner := NewRunner(defs, mock)

	mock.ExpectQuery(`SELECT id, val FROM objects`).
		WithArgs("demo", "200").
		WillReturnRows(pgxmock.NewRows([]string{"id", "val"}).
			AddRow(int64(205), "Alice").
			AddRow(int64(206), "Bob"))

	rows, err := runner.Run(context.Background(), "objects_of_type", "demo",
		map[string]string{"typ": "200"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rows) != 2 || rows[0]["val"] != "Alice" {
		t.Errorf("rows = %v", rows)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunner_Run_Errors(t *testing.T) {
	defs := []Definition{{ID: 1, Name: "r", SQL: "SELECT 1", Params: []string{"ns", "typ"}}}
	runner := NewRunner(defs, nil)
	ctx := context.Background()

	_, err := runner.Run(ctx, "missing", "demo", nil)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeReportNotFound {
		t.Errorf("Run(missing) error = %v, want %s", err, apperrors.CodeReportNotFound)
	}

	// A declared parameter the caller did not supply is an input error.
	_, err = runner.Run(ctx, "r", "demo", map[string]string{})
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeBadRequest {
		t.Errorf("Run() error = %v, want %s", err, apperrors.CodeBadRequest)
	}
}
