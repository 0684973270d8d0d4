package dispatch

import (
	"context"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
)

// Flag reports whether key is set truthy. A present key with an empty value
// counts as set, matching the legacy convention of bare flags like "cascade".
func (p Params) Flag(key string) bool {
	if !p.Has(key) {
		return false
	}
	switch p.First(key) {
	case "", "1", "true", "on", "yes":
		return true
	}
	return false
}

func (d *Dispatcher) execute(ctx context.Context, req Request) (any, error) {
	switch req.Action {
	case ActCreate:
		return d.doCreate(ctx, req)
	case ActSave:
		return d.doSave(ctx, req)
	case ActDelete:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		if err := d.st.DeleteObject(ctx, req.NS, id, req.Params.Flag("cascade")); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActMoveUp:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		if err := d.st.MoveUp(ctx, req.NS, id); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActSetOrder:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		ord, err := req.Params.Int64("ord")
		if err != nil {
			return nil, err
		}
		if err := d.st.SetOrder(ctx, req.NS, id, int(ord)); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActSetID:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		newID, err := req.Params.Int64("newid")
		if err != nil {
			return nil, err
		}
		if err := d.st.ReassignID(ctx, req.NS, id, newID); err != nil {
			return nil, err
		}
		return idResult(newID), nil

	case ActCreateTable:
		return d.doCreateTable(ctx, req)
	case ActSaveTable:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		name := req.Params.First("name")
		if name == "" {
			name = req.Params.First("val")
		}
		if err := d.reg.RenameType(ctx, req.NS, id, name); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActDeleteTable:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		if err := d.reg.DeleteType(ctx, req.NS, id, req.Params.Flag("cascade")); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActCloneTable:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		newID, err := d.reg.CloneType(ctx, req.NS, id)
		if err != nil {
			return nil, err
		}
		return idResult(newID), nil
	case ActSetUnique:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		if err := d.reg.SetUnique(ctx, req.NS, id, req.Params.Flag("val")); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActCreateReq:
		return d.doCreateReq(ctx, req)
	case ActCreateRef:
		return d.doCreateRef(ctx, req)
	case ActSetAlias:
		reqID, err := req.Params.Int64("req")
		if err != nil {
			return nil, err
		}
		if err := d.reg.SetAlias(ctx, req.NS, reqID, req.Params.First("alias")); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActSetNotNull:
		reqID, err := req.Params.Int64("req")
		if err != nil {
			return nil, err
		}
		if err := d.reg.SetRequired(ctx, req.NS, reqID, req.Params.Flag("val")); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActSetMulti:
		reqID, err := req.Params.Int64("req")
		if err != nil {
			return nil, err
		}
		if err := d.reg.SetMulti(ctx, req.NS, reqID, req.Params.Flag("val")); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActSetReqAttrs:
		reqID, err := req.Params.Int64("req")
		if err != nil {
			return nil, err
		}
		err = d.reg.SetReqAttrs(ctx, req.NS, reqID,
			req.Params.First("alias"), req.Params.Flag("notnull"), req.Params.Flag("multi"))
		if err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActSetReqOrder:
		reqID, err := req.Params.Int64("req")
		if err != nil {
			return nil, err
		}
		ord, err := req.Params.Int64("ord")
		if err != nil {
			return nil, err
		}
		if err := d.reg.SetOrder(ctx, req.NS, reqID, int(ord)); err != nil {
			return nil, err
		}
		return okResult(), nil
	case ActDeleteReq:
		reqID, err := req.Params.Int64("req")
		if err != nil {
			return nil, err
		}
		if err := d.reg.DeleteRequisite(ctx, req.NS, reqID, req.Params.Flag("force")); err != nil {
			return nil, err
		}
		return okResult(), nil

	case ActDict:
		typeID, err := req.Params.Int64("table")
		if err != nil {
			return nil, err
		}
		return d.proj.Dictionary(ctx, req.NS, typeID, req.Params.Page())
	case ActList:
		typeID, err := req.Params.Int64("table")
		if err != nil {
			return nil, err
		}
		if req.Params.Has("short") {
			return d.proj.CompactList(ctx, req.NS, typeID, req.Params.Page())
		}
		return d.proj.FullList(ctx, req.NS, typeID, req.Params.Page())
	case ActMeta:
		if req.Params.Has("table") {
			typeID, err := req.Params.Int64("table")
			if err != nil {
				return nil, err
			}
			return d.proj.TypeMeta(ctx, req.NS, typeID)
		}
		return d.proj.AllMeta(ctx, req.NS)
	case ActRefOpt:
		reqID, err := req.Params.Int64("req")
		if err != nil {
			return nil, err
		}
		return d.proj.RefOptions(ctx, req.NS, reqID, req.Params.Page())
	case ActTerm:
		id, err := req.Params.Int64("id")
		if err != nil {
			return nil, err
		}
		val, err := d.proj.Term(ctx, req.NS, id)
		if err != nil {
			return nil, err
		}
		return map[string]string{"val": val}, nil
	case ActReport:
		return d.doReport(ctx, req)
	}
	return nil, apperrors.ErrUnknownAction(string(req.Action))
}

func (d *Dispatcher) doCreate(ctx context.Context, req Request) (any, error) {
	typeID, err := req.Params.Int64("table")
	if err != nil {
		return nil, err
	}
	var up int64
	if req.Params.Has("up") {
		if up, err = req.Params.Int64("up"); err != nil {
			return nil, err
		}
	}
	var ord *int
	if req.Params.Has("ord") {
		n, err := req.Params.Int64("ord")
		if err != nil {
			return nil, err
		}
		v := int(n)
		ord = &v
	}
	id, err := d.st.CreateObject(ctx, req.NS, typeID, req.Params.First("val"), up, ord)
	if err != nil {
		return nil, err
	}
	attrs, err := req.Params.AttrWrites()
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := d.st.SaveObject(ctx, req.NS, id, nil, attrs); err != nil {
			return nil, err
		}
	}
	return idResult(id), nil
}

func (d *Dispatcher) doSave(ctx context.Context, req Request) (any, error) {
	id, err := req.Params.Int64("id")
	if err != nil {
		return nil, err
	}
	var val *string
	if req.Params.Has("val") {
		v := req.Params.First("val")
		val = &v
	}
	attrs, err := req.Params.AttrWrites()
	if err != nil {
		return nil, err
	}
	if err := d.st.SaveObject(ctx, req.NS, id, val, attrs); err != nil {
		return nil, err
	}
	return okResult(), nil
}

func (d *Dispatcher) doCreateTable(ctx context.Context, req Request) (any, error) {
	name := req.Params.First("name")
	if name == "" {
		name = req.Params.First("val")
	}
	base := domain.KindTable
	if req.Params.Has("base") {
		n, err := req.Params.Int64("base")
		if err != nil {
			return nil, err
		}
		base = domain.BaseKind(n)
	}
	id, err := d.reg.CreateType(ctx, req.NS, name, base, req.Params.Flag("unique"))
	if err != nil {
		return nil, err
	}
	return idResult(id), nil
}

func (d *Dispatcher) doCreateReq(ctx context.Context, req Request) (any, error) {
	typeID, err := req.Params.Int64("table")
	if err != nil {
		return nil, err
	}
	base, err := req.Params.Int64("base")
	if err != nil {
		return nil, err
	}
	name := req.Params.First("name")
	if name == "" {
		name = req.Params.First("val")
	}
	// A base at or above the user-id floor is a reference target, not a kind.
	if domain.IsReference(base) {
		reqID, err := d.reg.CreateReference(ctx, req.NS, typeID, base, name)
		if err != nil {
			return nil, err
		}
		return idResult(reqID), nil
	}
	reqID, err := d.reg.AddRequisite(ctx, req.NS, typeID, domain.BaseKind(base), name)
	if err != nil {
		return nil, err
	}
	return idResult(reqID), nil
}

func (d *Dispatcher) doCreateRef(ctx context.Context, req Request) (any, error) {
	typeID, err := req.Params.Int64("table")
	if err != nil {
		return nil, err
	}
	target, err := req.Params.Int64("ref")
	if err != nil {
		// The target may also arrive in the base slot.
		target, err = req.Params.Int64("base")
		if err != nil {
			return nil, err
		}
	}
	name := req.Params.First("name")
	if name == "" {
		name = req.Params.First("val")
	}
	reqID, err := d.reg.CreateReference(ctx, req.NS, typeID, target, name)
	if err != nil {
		return nil, err
	}
	return idResult(reqID), nil
}

func (d *Dispatcher) doReport(ctx context.Context, req Request) (any, error) {
	if d.reports == nil {
		return nil, apperrors.NotFound(apperrors.CodeReportNotFound, "reports are not configured")
	}
	ref := req.Params.First("name")
	if ref == "" {
		ref = req.Params.First("id")
	}
	if ref == "" {
		ref = req.Params.First("report")
	}
	if ref == "" {
		return nil, apperrors.InvalidArgument(apperrors.CodeBadRequest, "missing report name")
	}
	args := make(map[string]string, len(req.Params))
	for key := range req.Params {
		args[key] = req.Params.First(key)
	}
	return d.reports.Run(ctx, ref, req.NS, args)
}

func okResult() map[string]any { return map[string]any{"ok": true} }

func idResult(id int64) map[string]any {
	return map[string]any{"ok": true, "id": id}
}
