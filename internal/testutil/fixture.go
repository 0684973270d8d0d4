package testutil

import (
	"context"
	"testing"

	"objbase.io/objbase/internal/domain"
	"objbase.io/objbase/internal/repository"
	"objbase.io/objbase/internal/schema"
	"objbase.io/objbase/internal/store"
)

// Fixture is an in-memory namespace with a small Person/Email schema, the
// shape most behavior tests need.
type Fixture struct {
	Repo     *repository.Memory
	Registry *schema.Registry
	Store    *store.Store

	NS       string
	PersonID int64
	NameID   int64
	EmailID  int64
}

// NewFixture builds the fixture: a Person type with a required Name and a
// multi-valued Email requisite.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemory()
	const ns = "demo"
	if err := repo.Namespaces().Create(ctx, ns); err != nil {
		t.Fatalf("Create(ns) error = %v", err)
	}

	registry := schema.NewRegistry(repo)
	objects := store.NewStore(repo)

	personID, err := registry.CreateType(ctx, ns, "Person", domain.KindTable, false)
	if err != nil {
		t.Fatalf("CreateType() error = %v", err)
	}
	nameID, err := registry.AddRequisite(ctx, ns, personID, domain.KindString, "Name")
	if err != nil {
		t.Fatalf("AddRequisite(Name) error = %v", err)
	}
	if err := registry.SetRequired(ctx, ns, nameID, true); err != nil {
		t.Fatalf("SetRequired() error = %v", err)
	}
	emailID, err := registry.AddRequisite(ctx, ns, personID, domain.KindString, "Email")
	if err != nil {
		t.Fatalf("AddRequisite(Email) error = %v", err)
	}
	if err := registry.SetMulti(ctx, ns, emailID, true); err != nil {
		t.Fatalf("SetMulti() error = %v", err)
	}

	return &Fixture{
		Repo:     repo,
		Registry: registry,
		Store:    objects,
		NS:       ns,
		PersonID: personID,
		NameID:   nameID,
		EmailID:  emailID,
	}
}

// CreatePerson adds a person object with the given display value and name.
func (f *Fixture) CreatePerson(t *testing.T, val, name string) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := f.Store.CreateObject(ctx, f.NS, f.PersonID, val, 0, nil)
	if err != nil {
		t.Fatalf("CreateObject(%q) error = %v", val, err)
	}
	if name != "" {
		err = f.Store.SaveObject(ctx, f.NS, id, nil, map[int64][]string{f.NameID: {name}})
		if err != nil {
			t.Fatalf("SaveObject(%q) error = %v", val, err)
		}
	}
	return id
}
