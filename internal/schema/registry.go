// Package schema implements the dynamic type/requisite registry over the
// object arena. Types are arena rows under TypeUp; requisite definitions are
// their child rows carrying the legacy modifier encoding.
package schema

import (
	"context"
	"fmt"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/repository"
)

// Registry performs schema DDL against a Repo.
type Registry struct {
	repo repository.Repo
}

// NewRegistry creates a schema registry.
func NewRegistry(repo repository.Repo) *Registry {
	return &Registry{repo: repo}
}

// CreateType creates a type with the given display name and base kind.
func (r *Registry) CreateType(ctx context.Context, ns, name string, base domain.BaseKind, unique bool) (int64, error) {
	if name == "" {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadRequest, "type name is required")
	}
	if !base.Valid() {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadBaseKind,
			fmt.Sprintf("bad base kind: %d", base))
	}

	var id int64
	err := r.repo.WithTx(ctx, func(tx repository.Repo) error {
		var err error
		id, err = tx.Objects().NextID(ctx, ns)
		if err != nil {
			return err
		}
		ord, err := tx.Objects().MaxOrd(ctx, ns, domain.TypeUp, int64(base))
		if err != nil {
			return err
		}
		return tx.Objects().Insert(ctx, ns, domain.Object{
			ID:  id,
			Val: domain.EncodeTypeName(name, unique),
			Up:  domain.TypeUp,
			Ord: ord + 1,
			Typ: int64(base),
		})
	})
	return id, err
}

// RenameType changes a type's display name, preserving its unique marker.
func (r *Registry) RenameType(ctx context.Context, ns string, typeID int64, name string) error {
	if name == "" {
		return apperrors.InvalidArgument(apperrors.CodeBadRequest, "type name is required")
	}
	return r.repo.WithTx(ctx, func(tx repository.Repo) error {
		row, err := r.typeRow(ctx, tx, ns, typeID)
		if err != nil {
			return err
		}
		_, unique := domain.DecodeTypeName(row.Val)
		return tx.Objects().SetVal(ctx, ns, typeID, domain.EncodeTypeName(name, unique))
	})
}

// SetUnique toggles the type's uniqueness marker.
func (r *Registry) SetUnique(ctx context.Context, ns string, typeID int64, unique bool) error {
	return r.repo.WithTx(ctx, func(tx repository.Repo) error {
		row, err := r.typeRow(ctx, tx, ns, typeID)
		if err != nil {
			return err
		}
		name, _ := domain.DecodeTypeName(row.Val)
		return tx.Objects().SetVal(ctx, ns, typeID, domain.EncodeTypeName(name, unique))
	})
}

// DeleteType deletes a type. Without cascade it fails with HasDependents when
// data instances exist; with cascade it removes every instance and its
// attribute children first, then the requisite definitions, then the type.
func (r *Registry) DeleteType(ctx context.Context, ns string, typeID int64, cascade bool) error {
	return r.repo.WithTx(ctx, func(tx repository.Repo) error {
		if _, err := r.typeRow(ctx, tx, ns, typeID); err != nil {
			return err
		}

		n, err := tx.Objects().CountByTyp(ctx, ns, typeID)
		if err != nil {
			return err
		}
		if n > 0 && !cascade {
			return apperrors.ErrHasDependents()
		}

		for {
			instances, err := tx.Objects().ListByTyp(ctx, ns, typeID, repository.Page{})
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				break
			}
			for _, inst := range instances {
				if err := deleteSubtree(ctx, tx, ns, inst.ID); err != nil {
					return err
				}
			}
		}

		reqs, err := tx.Objects().ListByUp(ctx, ns, typeID)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			if err := r.deleteRequisiteTx(ctx, tx, ns, req, true); err != nil {
				return err
			}
		}
		return tx.Objects().Delete(ctx, ns, typeID)
	})
}

// CloneType copies a type row and its requisite definitions under fresh ids.
// Data instances are not cloned.
func (r *Registry) CloneType(ctx context.Context, ns string, sourceID int64) (int64, error) {
	var newID int64
	err := r.repo.WithTx(ctx, func(tx repository.Repo) error {
		src, err := r.typeRow(ctx, tx, ns, sourceID)
		if err != nil {
			return err
		}

		newID, err = tx.Objects().NextID(ctx, ns)
		if err != nil {
			return err
		}
		ord, err := tx.Objects().MaxOrd(ctx, ns, domain.TypeUp, src.Typ)
		if err != nil {
			return err
		}
		if err := tx.Objects().Insert(ctx, ns, domain.Object{
			ID:  newID,
			Val: src.Val,
			Up:  domain.TypeUp,
			Ord: ord + 1,
			Typ: src.Typ,
		}); err != nil {
			return err
		}

		reqs, err := tx.Objects().ListByUp(ctx, ns, sourceID)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			reqID, err := tx.Objects().NextID(ctx, ns)
			if err != nil {
				return err
			}
			if err := tx.Objects().Insert(ctx, ns, domain.Object{
				ID:  reqID,
				Val: req.Val,
				Up:  newID,
				Ord: req.Ord,
				Typ: req.Typ,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return newID, err
}

// AddRequisite attaches a requisite of the given base kind to a type.
func (r *Registry) AddRequisite(ctx context.Context, ns string, typeID int64, base domain.BaseKind, name string) (int64, error) {
	if !base.Valid() {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadBaseKind,
			fmt.Sprintf("bad base kind: %d", base))
	}
	return r.addReqRow(ctx, ns, typeID, int64(base), name)
}

// CreateReference attaches a requisite referencing the target type. The
// target must exist in the same namespace.
func (r *Registry) CreateReference(ctx context.Context, ns string, typeID, targetTypeID int64, name string) (int64, error) {
	if !domain.IsReference(targetTypeID) {
		return 0, apperrors.InvalidReference(apperrors.CodeInvalidReference,
			fmt.Sprintf("not a user type id: %d", targetTypeID))
	}
	var id int64
	err := r.repo.WithTx(ctx, func(tx repository.Repo) error {
		if _, err := r.typeRow(ctx, tx, ns, targetTypeID); err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeTypeNotFound {
				return apperrors.InvalidReference(apperrors.CodeInvalidReference,
					fmt.Sprintf("reference target does not exist: %d", targetTypeID))
			}
			return err
		}
		var err error
		id, err = r.addReqRowTx(ctx, tx, ns, typeID, targetTypeID, name)
		return err
	})
	return id, err
}

// SetAlias sets or clears the requisite's alias token.
func (r *Registry) SetAlias(ctx context.Context, ns string, reqID int64, alias string) error {
	return r.mutateModifier(ctx, ns, reqID, func(m *domain.Modifier) { m.Alias = alias })
}

// SetRequired toggles the requisite's required flag.
func (r *Registry) SetRequired(ctx context.Context, ns string, reqID int64, required bool) error {
	return r.mutateModifier(ctx, ns, reqID, func(m *domain.Modifier) { m.Required = required })
}

// SetMulti toggles the requisite's multi-value flag.
func (r *Registry) SetMulti(ctx context.Context, ns string, reqID int64, multi bool) error {
	return r.mutateModifier(ctx, ns, reqID, func(m *domain.Modifier) { m.Multi = multi })
}

// SetReqAttrs sets alias, required, and multi in one call.
func (r *Registry) SetReqAttrs(ctx context.Context, ns string, reqID int64, alias string, required, multi bool) error {
	return r.mutateModifier(ctx, ns, reqID, func(m *domain.Modifier) {
		m.Alias = alias
		m.Required = required
		m.Multi = multi
	})
}

// SetOrder moves a requisite to the given column position.
func (r *Registry) SetOrder(ctx context.Context, ns string, reqID int64, ord int) error {
	return r.repo.WithTx(ctx, func(tx repository.Repo) error {
		if _, err := r.reqRow(ctx, tx, ns, reqID); err != nil {
			return err
		}
		return tx.Objects().SetOrd(ctx, ns, reqID, ord)
	})
}

// DeleteRequisite removes a requisite definition. Without forced it fails
// with HasValues when any stored value exists for it.
func (r *Registry) DeleteRequisite(ctx context.Context, ns string, reqID int64, forced bool) error {
	return r.repo.WithTx(ctx, func(tx repository.Repo) error {
		req, err := r.reqRow(ctx, tx, ns, reqID)
		if err != nil {
			return err
		}
		return r.deleteRequisiteTx(ctx, tx, ns, req, forced)
	})
}

// Type returns the decoded type view and its requisite definitions in
// column order.
func (r *Registry) Type(ctx context.Context, ns string, typeID int64) (domain.TypeView, []domain.ReqView, error) {
	row, err := r.typeRow(ctx, r.repo, ns, typeID)
	if err != nil {
		return domain.TypeView{}, nil, err
	}
	reqRows, err := r.repo.Objects().ListByUp(ctx, ns, typeID)
	if err != nil {
		return domain.TypeView{}, nil, err
	}
	reqs := make([]domain.ReqView, 0, len(reqRows))
	for _, rr := range reqRows {
		reqs = append(reqs, domain.ReqViewOf(rr))
	}
	return domain.TypeViewOf(row), reqs, nil
}

// Requisite returns the decoded view of one requisite definition.
func (r *Registry) Requisite(ctx context.Context, ns string, reqID int64) (domain.ReqView, error) {
	row, err := r.reqRow(ctx, r.repo, ns, reqID)
	if err != nil {
		return domain.ReqView{}, err
	}
	return domain.ReqViewOf(row), nil
}

// Types returns every type in the namespace.
func (r *Registry) Types(ctx context.Context, ns string) ([]domain.TypeView, error) {
	rows, err := r.repo.Objects().ListByUp(ctx, ns, domain.TypeUp)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TypeView, 0, len(rows))
	for _, row := range rows {
		if isTypeRow(row) {
			out = append(out, domain.TypeViewOf(row))
		}
	}
	return out, nil
}

func (r *Registry) addReqRow(ctx context.Context, ns string, typeID, typ int64, name string) (int64, error) {
	var id int64
	err := r.repo.WithTx(ctx, func(tx repository.Repo) error {
		var err error
		id, err = r.addReqRowTx(ctx, tx, ns, typeID, typ, name)
		return err
	})
	return id, err
}

func (r *Registry) addReqRowTx(ctx context.Context, tx repository.Repo, ns string, typeID, typ int64, name string) (int64, error) {
	if _, err := r.typeRow(ctx, tx, ns, typeID); err != nil {
		return 0, err
	}

	id, err := tx.Objects().NextID(ctx, ns)
	if err != nil {
		return 0, err
	}

	// Column positions run across all requisites of the type regardless of
	// their base kind.
	siblings, err := tx.Objects().ListByUp(ctx, ns, typeID)
	if err != nil {
		return 0, err
	}
	ord := 0
	for _, s := range siblings {
		if s.Ord > ord {
			ord = s.Ord
		}
	}

	err = tx.Objects().Insert(ctx, ns, domain.Object{
		ID:  id,
		Val: domain.Modifier{Name: name}.Encode(),
		Up:  typeID,
		Ord: ord + 1,
		Typ: typ,
	})
	return id, err
}

func (r *Registry) deleteRequisiteTx(ctx context.Context, tx repository.Repo, ns string, req domain.Object, forced bool) error {
	n, err := tx.Objects().CountByTyp(ctx, ns, req.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		if !forced {
			return apperrors.ErrHasValues()
		}
		for {
			values, err := tx.Objects().ListByTyp(ctx, ns, req.ID, repository.Page{})
			if err != nil {
				return err
			}
			if len(values) == 0 {
				break
			}
			ids := make([]int64, len(values))
			for i, v := range values {
				ids[i] = v.ID
			}
			if err := tx.Objects().DeleteMany(ctx, ns, ids); err != nil {
				return err
			}
		}
	}
	return tx.Objects().Delete(ctx, ns, req.ID)
}

func (r *Registry) mutateModifier(ctx context.Context, ns string, reqID int64, mutate func(*domain.Modifier)) error {
	return r.repo.WithTx(ctx, func(tx repository.Repo) error {
		req, err := r.reqRow(ctx, tx, ns, reqID)
		if err != nil {
			return err
		}
		m := domain.DecodeModifier(req.Val)
		mutate(&m)
		return tx.Objects().SetVal(ctx, ns, reqID, m.Encode())
	})
}

func (r *Registry) typeRow(ctx context.Context, repo repository.Repo, ns string, typeID int64) (domain.Object, error) {
	row, err := repo.Objects().Get(ctx, ns, typeID)
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeObjectNotFound {
			return domain.Object{}, apperrors.ErrTypeNotFoundf(typeID)
		}
		return domain.Object{}, err
	}
	if !isTypeRow(row) {
		return domain.Object{}, apperrors.NotFound(apperrors.CodeTypeNotFound, "object is not a type")
	}
	return row, nil
}

func (r *Registry) reqRow(ctx context.Context, repo repository.Repo, ns string, reqID int64) (domain.Object, error) {
	row, err := repo.Objects().Get(ctx, ns, reqID)
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeObjectNotFound {
			return domain.Object{}, apperrors.NotFound(apperrors.CodeReqNotFound, "requisite not found")
		}
		return domain.Object{}, err
	}
	if row.Up == domain.TypeUp || row.Up == 0 {
		return domain.Object{}, apperrors.NotFound(apperrors.CodeReqNotFound, "object is not a requisite")
	}
	if _, err := repo.Objects().Get(ctx, ns, row.Up); err != nil {
		return domain.Object{}, apperrors.NotFound(apperrors.CodeReqNotFound, "requisite owner missing")
	}
	return row, nil
}

func isTypeRow(o domain.Object) bool {
	return o.Up == domain.TypeUp && domain.BaseKind(o.Typ).Valid()
}

// deleteSubtree removes an object and every descendant, depth first.
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
