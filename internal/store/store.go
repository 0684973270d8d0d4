// Package store implements generic object CRUD over the arena: data rows,
// their attribute children, and the per-sibling ordering rules.
package store

import (
	"context"
	"fmt"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/repository"
)

// Store performs object DML against a Repo.
type Store struct {
	repo repository.Repo
}

// NewStore creates an entity store.
func NewStore(repo repository.Repo) *Store {
	return &Store{repo: repo}
}

// CreateObject creates a data object of the given type. A nil ord appends
// the object after its last sibling.
func (s *Store) CreateObject(ctx context.Context, ns string, typeID int64, val string, up int64, ord *int) (int64, error) {
	if !domain.IsReference(typeID) {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadRequest,
			fmt.Sprintf("not a user type id: %d", typeID))
	}

	var id int64
	err := s.repo.WithTx(ctx, func(tx repository.Repo) error {
		if _, err := tx.Objects().Get(ctx, ns, typeID); err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeObjectNotFound {
				return apperrors.ErrTypeNotFoundf(typeID)
			}
			return err
		}

		var err error
		id, err = tx.Objects().NextID(ctx, ns)
		if err != nil {
			return err
		}

		position := 0
		if ord != nil {
			position = *ord
		} else {
			max, err := tx.Objects().MaxOrd(ctx, ns, up, typeID)
			if err != nil {
				return err
			}
			position = max + 1
		}

		return tx.Objects().Insert(ctx, ns, domain.Object{
			ID:  id,
			Val: val,
			Up:  up,
			Ord: position,
			Typ: typeID,
		})
	})
	return id, err
}

// SaveObject updates an object's value and writes requisite values.
// A single-valued requisite updates its existing child entity if present,
// else inserts one; a multi-valued requisite appends a child per value.
// Requisites absent from reqValues are left unchanged.
func (s *Store) SaveObject(ctx context.Context, ns string, id int64, val *string, reqValues map[int64][]string) error {
	return s.repo.WithTx(ctx, func(tx repository.Repo) error {
		obj, err := tx.Objects().Get(ctx, ns, id)
		if err != nil {
			return err
		}

		if val != nil {
			if err := tx.Objects().SetVal(ctx, ns, id, *val); err != nil {
				return err
			}
		}

		for reqID, values := range reqValues {
			req, err := tx.Objects().Get(ctx, ns, reqID)
			if err != nil {
				if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeObjectNotFound {
					return apperrors.NotFound(apperrors.CodeReqNotFound,
						fmt.Sprintf("requisite not found: %d", reqID))
				}
				return err
			}
			if req.Up != obj.Typ {
				return apperrors.InvalidArgument(apperrors.CodeBadRequest,
					fmt.Sprintf("requisite %d does not belong to type %d", reqID, obj.Typ))
			}

			mod := domain.DecodeModifier(req.Val)
			if mod.Multi {
				if err := s.appendValues(ctx, tx, ns, id, reqID, values); err != nil {
					return err
				}
				continue
			}
			if err := s.upsertValue(ctx, tx, ns, id, reqID, values); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) appendValues(ctx context.Context, tx repository.Repo, ns string, objID, reqID int64, values []string) error {
	max, err := tx.Objects().MaxOrd(ctx, ns, objID, reqID)
	if err != nil {
		return err
	}
	for i, v := range values {
		childID, err := tx.Objects().NextID(ctx, ns)
		if err != nil {
			return err
		}
		if err := tx.Objects().Insert(ctx, ns, domain.Object{
			ID:  childID,
			Val: v,
			Up:  objID,
			Ord: max + 1 + i,
			Typ: reqID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertValue(ctx context.Context, tx repository.Repo, ns string, objID, reqID int64, values []string) error {
	if len(values) == 0 {
		return nil
	}
	// Last value wins for a single-valued requisite.
	v := values[len(values)-1]

	existing, err := tx.Objects().ListByUpTyp(ctx, ns, objID, reqID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return tx.Objects().SetVal(ctx, ns, existing[0].ID, v)
	}

	childID, err := tx.Objects().NextID(ctx, ns)
	if err != nil {
		return err
	}
	return tx.Objects().Insert(ctx, ns, domain.Object{
		ID:  childID,
		Val: v,
		Up:  objID,
		Ord: 1,
		Typ: reqID,
	})
}

// DeleteObject deletes an object. Without cascade it fails with HasChildren
// when any child entity exists; with cascade the whole subtree goes.
func (s *Store) DeleteObject(ctx context.Context, ns string, id int64, cascade bool) error {
	return s.repo.WithTx(ctx, func(tx repository.Repo) error {
		obj, err := tx.Objects().Get(ctx, ns, id)
		if err != nil {
			return err
		}
		// A type-defining row goes through delete_table semantics only.
		if obj.Up == domain.TypeUp && domain.BaseKind(obj.Typ).Valid() && !cascade {
			return apperrors.ErrHasDependents()
		}

		children, err := tx.Objects().ListByUp(ctx, ns, id)
		if err != nil {
			return err
		}
		if len(children) > 0 && !cascade {
			return apperrors.ErrHasChildren()
		}
		return deleteSubtree(ctx, tx, ns, id)
	})
}

// MoveUp swaps the object's order with its immediately preceding sibling
// (same parent, same type). A no-op at the first position.
func (s *Store) MoveUp(ctx context.Context, ns string, id int64) error {
	return s.repo.WithTx(ctx, func(tx repository.Repo) error {
		obj, err := tx.Objects().Get(ctx, ns, id)
		if err != nil {
			return err
		}
		siblings, err := tx.Objects().ListByUpTyp(ctx, ns, obj.Up, obj.Typ)
		if err != nil {
			return err
		}

		prev := -1
		for i, sib := range siblings {
			if sib.ID == id {
				prev = i - 1
				break
			}
		}
		if prev < 0 {
			// First sibling or not found in its own group: nothing to do.
			return nil
		}

		other := siblings[prev]
		if err := tx.Objects().SetOrd(ctx, ns, id, other.Ord); err != nil {
			return err
		}
		return tx.Objects().SetOrd(ctx, ns, other.ID, obj.Ord)
	})
}

// SetOrder moves an object to an explicit order index.
func (s *Store) SetOrder(ctx context.Context, ns string, id int64, ord int) error {
	return s.repo.WithTx(ctx, func(tx repository.Repo) error {
		if _, err := tx.Objects().Get(ctx, ns, id); err != nil {
			return err
		}
		return tx.Objects().SetOrd(ctx, ns, id, ord)
	})
}

// ReassignID moves an object to a new id, repointing children and
// references. Restricted to privileged actors by the dispatcher.
func (s *Store) ReassignID(ctx context.Context, ns string, oldID, newID int64) error {
	if !domain.IsReference(newID) {
		return apperrors.InvalidArgument(apperrors.CodeBadRequest,
			fmt.Sprintf("new id must be at least %d", domain.FirstUserID))
	}
	return s.repo.WithTx(ctx, func(tx repository.Repo) error {
		if _, err := tx.Objects().Get(ctx, ns, newID); err == nil {
			return apperrors.Conflict(apperrors.CodeIDTaken, "object id already taken")
		}
		return tx.Objects().ReassignID(ctx, ns, oldID, newID)
	})
}

// Get returns a single object.
func (s *Store) Get(ctx context.Context, ns string, id int64) (domain.Object, error) {
	return s.repo.Objects().Get(ctx, ns, id)
}

// ListByType returns data objects of a type, ord then id ascending.
func (s *Store) ListByType(ctx context.Context, ns string, typeID int64, page repository.Page) ([]domain.Object, error) {
	return s.repo.Objects().ListByTyp(ctx, ns, typeID, page)
}

// ListChildren returns all child entities of an object.
func (s *Store) ListChildren(ctx context.Context, ns string, parentID int64) ([]domain.Object, error) {
	return s.repo.Objects().ListByUp(ctx, ns, parentID)
}

// Values returns an object's stored requisite values grouped by requisite
// id, in write order.
func (s *Store) Values(ctx context.Context, ns string, objID int64) (map[int64][]string, error) {
	children, err := s.repo.Objects().ListByUp(ctx, ns, objID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]string)
	for _, child := range children {
		out[child.Typ] = append(out[child.Typ], child.Val)
	}
	return out, nil
}

func deleteSubtree(ctx context.Context, tx repository.Repo, ns string, id int64) error {
	children, err := tx.Objects().ListByUp(ctx, ns, id)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := deleteSubtree(ctx, tx, ns, child.ID); err != nil {
			return err
		}
	}
	return tx.Objects().Delete(ctx, ns, id)
}
