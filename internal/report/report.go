// Package report runs named, pre-defined aggregate queries. Definitions are
// external configuration; column names come from the query, not the engine.
package report

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/repository"
)

// Definition is one configured report.
type Definition struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
	SQL  string `yaml:"sql"`
	// Params names the query parameters in positional order. The namespace
	// parameter "ns" is always bound by the engine, never by the caller.
	Params []string `yaml:"params"`
}

type definitionsFile struct {
	Reports []Definition `yaml:"reports"`
}

// LoadDefinitions reads report definitions from a YAML file. A missing file
// means no reports are configured.
func LoadDefinitions(path string) ([]Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read report definitions: %w", err)
	}
	var f definitionsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse report definitions: %w", err)
	}
	return f.Reports, nil
}

// Runner executes configured reports read-only against the store.
type Runner struct {
	defs []Definition
	q    repository.Querier
}

// NewRunner creates a report runner.
func NewRunner(defs []Definition, q repository.Querier) *Runner {
	return &Runner{defs: defs, q: q}
}

// Find resolves a report by name or numeric id.
func (r *Runner) Find(ref string) (Definition, bool) {
	if id, err := strconv.Atoi(ref); err == nil {
		for _, d := range r.defs {
			if d.ID == id {
				return d, true
			}
		}
	}
	for _, d := range r.defs {
		if d.Name == ref {
			return d, true
		}
	}
	return Definition{}, false
}

// Run executes a report and returns its rows as plain key-value objects.
func (r *Runner) Run(ctx context.Context, ref, ns string, params map[string]string) ([]map[string]any, error) {
	def, ok := r.Find(ref)
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeReportNotFound, "report not found: "+ref)
	}

	args := make([]any, 0, len(def.Params))
	for _, name := range def.Params {
		if name == "ns" {
			args = append(args, ns)
			continue
		}
		v, ok := params[name]
		if !ok {
			return nil, apperrors.InvalidArgument(apperrors.CodeBadRequest,
				"missing report parameter: "+name)
		}
		args = append(args, v)
	}

	rows, err := r.q.Query(ctx, def.SQL, args...)
	if err != nil {
		return nil, apperrors.StoreUnavailable("run report", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, apperrors.StoreUnavailable("collect report rows", err)
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}
