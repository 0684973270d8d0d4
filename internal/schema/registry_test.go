package schema_test

import (
	"context"
	"errors"
	"testing"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/repository"
	"objbase.io/objbase/internal/testutil"
)

func pageAll() repository.Page { return repository.Page{} }

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want AppError %s", err, code)
	}
	if appErr.Code != code {
		t.Fatalf("error code = %s, want %s", appErr.Code, code)
	}
}

func TestRegistry_CreateType(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	if f.PersonID < domain.FirstUserID {
		t.Errorf("type id = %d, want >= %d", f.PersonID, domain.FirstUserID)
	}

	view, reqs, err := f.Registry.Type(ctx, f.NS, f.PersonID)
	if err != nil {
		t.Fatalf("Type() error = %v", err)
	}
	if view.Name != "Person" || view.Unique {
		t.Errorf("type = %+v, want Person, not unique", view)
	}
	if len(reqs) != 2 {
		t.Fatalf("len(reqs) = %d, want 2", len(reqs))
	}
	if reqs[0].Modifier.Name != "Name" || !reqs[0].Modifier.Required {
		t.Errorf("first requisite = %+v, want required Name", reqs[0])
	}
	if reqs[1].Modifier.Name != "Email" || !reqs[1].Modifier.Multi {
		t.Errorf("second requisite = %+v, want multi Email", reqs[1])
	}
}

func TestRegistry_CreateTypeValidation(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	_, err := f.Registry.CreateType(ctx, f.NS, "", domain.KindTable, false)
	wantCode(t, err, apperrors.CodeBadRequest)

	_, err = f.Registry.CreateType(ctx, f.NS, "Bad", domain.BaseKind(42), false)
	wantCode(t, err, apperrors.CodeBadBaseKind)

	_, err = f.Registry.CreateType(ctx, f.NS, "Bad", domain.KindRefBase, false)
	wantCode(t, err, apperrors.CodeBadBaseKind)
}

func TestRegistry_RenameKeepsUnique(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	if err := f.Registry.SetUnique(ctx, f.NS, f.PersonID, true); err != nil {
		t.Fatalf("SetUnique() error = %v", err)
	}
	if err := f.Registry.RenameType(ctx, f.NS, f.PersonID, "Employee"); err != nil {
		t.Fatalf("RenameType() error = %v", err)
	}

	view, _, err := f.Registry.Type(ctx, f.NS, f.PersonID)
	if err != nil {
		t.Fatalf("Type() error = %v", err)
	}
	if view.Name != "Employee" || !view.Unique {
		t.Errorf("type = %+v, want unique Employee", view)
	}
}

func TestRegistry_DeleteTypeCascade(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	f.CreatePerson(t, "Alice", "Alice Cooper")

	err := f.Registry.DeleteType(ctx, f.NS, f.PersonID, false)
	wantCode(t, err, apperrors.CodeHasDependents)

	if err := f.Registry.DeleteType(ctx, f.NS, f.PersonID, true); err != nil {
		t.Fatalf("DeleteType(cascade) error = %v", err)
	}
	_, _, err = f.Registry.Type(ctx, f.NS, f.PersonID)
	wantCode(t, err, apperrors.CodeTypeNotFound)

	types, err := f.Registry.Types(ctx, f.NS)
	if err != nil {
		t.Fatalf("Types() error = %v", err)
	}
	if len(types) != 0 {
		t.Errorf("len(types) = %d after cascade delete, want 0", len(types))
	}
}

func TestRegistry_CloneType(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	f.CreatePerson(t, "Alice", "Alice Cooper")

	cloneID, err := f.Registry.CloneType(ctx, f.NS, f.PersonID)
	if err != nil {
		t.Fatalf("CloneType() error = %v", err)
	}
	if cloneID == f.PersonID {
		t.Fatal("clone shares the source id")
	}

	view, reqs, err := f.Registry.Type(ctx, f.NS, cloneID)
	if err != nil {
		t.Fatalf("Type(clone) error = %v", err)
	}
	if view.Name != "Person" {
		t.Errorf("clone name = %q, want Person", view.Name)
	}
	if len(reqs) != 2 {
		t.Fatalf("clone has %d requisites, want 2", len(reqs))
	}
	for _, req := range reqs {
		if req.ID == f.NameID || req.ID == f.EmailID {
			t.Errorf("clone reuses requisite id %d", req.ID)
		}
	}

	// Data is not cloned.
	instances, err := f.Store.ListByType(ctx, f.NS, cloneID, pageAll())
	if err != nil {
		t.Fatalf("ListByType(clone) error = %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("clone has %d instances, want 0", len(instances))
	}
}

func TestRegistry_CreateReference(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	reqID, err := f.Registry.CreateReference(ctx, f.NS, f.PersonID, f.PersonID, "Manager")
	if err != nil {
		t.Fatalf("CreateReference() error = %v", err)
	}
	req, err := f.Registry.Requisite(ctx, f.NS, reqID)
	if err != nil {
		t.Fatalf("Requisite() error = %v", err)
	}
	if req.Kind() != domain.KindRefBase {
		t.Errorf("Kind() = %v, want reference", req.Kind())
	}
	if req.Typ != f.PersonID {
		t.Errorf("target = %d, want %d", req.Typ, f.PersonID)
	}

	_, err = f.Registry.CreateReference(ctx, f.NS, f.PersonID, int64(domain.KindString), "Bad")
	wantCode(t, err, apperrors.CodeInvalidReference)

	_, err = f.Registry.CreateReference(ctx, f.NS, f.PersonID, 99999, "Ghost")
	wantCode(t, err, apperrors.CodeInvalidReference)
}

func TestRegistry_ModifierMutations(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	if err := f.Registry.SetAlias(ctx, f.NS, f.EmailID, "E-Mail"); err != nil {
		t.Fatalf("SetAlias() error = %v", err)
	}
	if err := f.Registry.SetRequired(ctx, f.NS, f.EmailID, true); err != nil {
		t.Fatalf("SetRequired() error = %v", err)
	}

	req, err := f.Registry.Requisite(ctx, f.NS, f.EmailID)
	if err != nil {
		t.Fatalf("Requisite() error = %v", err)
	}
	if req.Modifier.Alias != "E-Mail" || !req.Modifier.Required || !req.Modifier.Multi {
		t.Errorf("requisite = %+v, want aliased, required, multi", req)
	}

	// One-shot form overwrites all three attributes.
	if err := f.Registry.SetReqAttrs(ctx, f.NS, f.EmailID, "", false, false); err != nil {
		t.Fatalf("SetReqAttrs() error = %v", err)
	}
	req, _ = f.Registry.Requisite(ctx, f.NS, f.EmailID)
	if req.Modifier.Alias != "" || req.Modifier.Required || req.Modifier.Multi {
		t.Errorf("requisite = %+v, want all attributes cleared", req)
	}
}

func TestRegistry_DeleteRequisite(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	f.CreatePerson(t, "Alice", "Alice Cooper")

	err := f.Registry.DeleteRequisite(ctx, f.NS, f.NameID, false)
	wantCode(t, err, apperrors.CodeHasValues)

	if err := f.Registry.DeleteRequisite(ctx, f.NS, f.NameID, true); err != nil {
		t.Fatalf("DeleteRequisite(forced) error = %v", err)
	}
	_, err = f.Registry.Requisite(ctx, f.NS, f.NameID)
	wantCode(t, err, apperrors.CodeReqNotFound)

	// Unused requisites delete without force.
	if err := f.Registry.DeleteRequisite(ctx, f.NS, f.EmailID, false); err != nil {
		t.Fatalf("DeleteRequisite(unused) error = %v", err)
	}
}

func TestRegistry_TypeRowGuards(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	// A data object is not a type.
	aliceID := f.CreatePerson(t, "Alice", "")
	_, _, err := f.Registry.Type(ctx, f.NS, aliceID)
	wantCode(t, err, apperrors.CodeTypeNotFound)

	// A type is not a requisite.
	_, err = f.Registry.Requisite(ctx, f.NS, f.PersonID)
	wantCode(t, err, apperrors.CodeReqNotFound)
}

func TestRegistry_DeleteTypeIgnoresInboundReferences(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	teamID, err := f.Registry.CreateType(ctx, f.NS, "Team", domain.KindTable, false)
	if err != nil {
		t.Fatalf("CreateType(Team) error = %v", err)
	}
	leadID, err := f.Registry.CreateReference(ctx, f.NS, teamID, f.PersonID, "Lead")
	if err != nil {
		t.Fatalf("CreateReference() error = %v", err)
	}

	// Team's Lead column stores Person's id in typ; it is a schema row, not a
	// Person instance, so a plain delete must go through.
	if err := f.Registry.DeleteType(ctx, f.NS, f.PersonID, false); err != nil {
		t.Fatalf("DeleteType() error = %v", err)
	}

	req, err := f.Registry.Requisite(ctx, f.NS, leadID)
	if err != nil {
		t.Fatalf("Requisite(Lead) error = %v", err)
	}
	if req.Typ != f.PersonID {
		t.Errorf("Lead target = %d, want %d", req.Typ, f.PersonID)
	}
}
