// Package projection builds the legacy response shapes from the schema
// registry and entity store. Field names are part of the wire contract and
// must not be renamed.
package projection

import (
	"context"
	"strconv"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/repository"
	"objbase.io/objbase/internal/schema"
	"objbase.io/objbase/internal/store"
)

// ObjectRow is one row of the full object list.
type ObjectRow struct {
	ID  int64               `json:"id"`
	Val string              `json:"val"`
	Up  int64               `json:"up"`
	Ord int                 `json:"ord"`
	Req map[string][]string `json:"req"`
}

// BaseInfo names a base kind.
type BaseInfo struct {
	ID  int64  `json:"id"`
	Val string `json:"val"`
}

// TypeInfo is the type header of the full object list.
type TypeInfo struct {
	ID   int64    `json:"id"`
	Val  string   `json:"val"`
	Base BaseInfo `json:"base"`
}

// FullList is the full object list response shape.
type FullList struct {
	Object    []ObjectRow       `json:"object"`
	Type      TypeInfo          `json:"type"`
	ReqTypes  []string          `json:"reqtypes"`
	ReqBase   map[string]string `json:"reqbase"`
	ReqBaseID map[string]int64  `json:"reqbaseid"`
}

// CompactRow is one row of the compact array variant; single-letter keys are
// the legacy bandwidth-saving convention.
type CompactRow struct {
	I int64    `json:"i"`
	U int64    `json:"u"`
	O int      `json:"o"`
	V []string `json:"v"`
}

// CompactList is the compact array response shape.
type CompactList struct {
	D []CompactRow `json:"d"`
}

// ReqMeta is one requisite summary in the metadata shape.
type ReqMeta struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Alias    string `json:"alias,omitempty"`
	Required bool   `json:"required"`
	Multi    bool   `json:"multi"`
	Base     string `json:"base"`
	BaseID   int64  `json:"baseid"`
}

// TypeMeta is the metadata/dictionary shape for one type.
type TypeMeta struct {
	ID     int64     `json:"id"`
	Val    string    `json:"val"`
	Up     int64     `json:"up"`
	Base   string    `json:"base"`
	Unique bool      `json:"unique"`
	Req    []ReqMeta `json:"req"`
}

// Option is one reference lookup option.
type Option struct {
	ID  int64  `json:"id"`
	Val string `json:"val"`
}

// Engine composes registry and store queries into response shapes.
type Engine struct {
	reg *schema.Registry
	st  *store.Store
}

// NewEngine creates a projection engine.
func NewEngine(reg *schema.Registry, st *store.Store) *Engine {
	return &Engine{reg: reg, st: st}
}

// FullList builds the full object list for a type: rows with nested
// requisite-value maps plus the metadata maps clients render from without a
// second round trip.
func (e *Engine) FullList(ctx context.Context, ns string, typeID int64, page repository.Page) (*FullList, error) {
	tv, reqs, err := e.reg.Type(ctx, ns, typeID)
	if err != nil {
		return nil, err
	}

	rows, err := e.st.ListByType(ctx, ns, typeID, page)
	if err != nil {
		return nil, err
	}

	out := &FullList{
		Object: make([]ObjectRow, 0, len(rows)),
		Type: TypeInfo{
			ID:  tv.ID,
			Val: tv.Name,
			Base: BaseInfo{
				ID:  int64(tv.Base),
				Val: tv.Base.String(),
			},
		},
		ReqTypes:  make([]string, 0, len(reqs)),
		ReqBase:   make(map[string]string, len(reqs)),
		ReqBaseID: make(map[string]int64, len(reqs)),
	}

	for _, req := range reqs {
		key := strconv.FormatInt(req.ID, 10)
		out.ReqTypes = append(out.ReqTypes, req.Modifier.Name)
		out.ReqBase[key] = req.Kind().String()
		out.ReqBaseID[key] = req.Typ
	}

	for _, row := range rows {
		values, err := e.st.Values(ctx, ns, row.ID)
		if err != nil {
			return nil, err
		}
		req := make(map[string][]string, len(values))
		for reqID, vals := range values {
			req[strconv.FormatInt(reqID, 10)] = vals
		}
		out.Object = append(out.Object, ObjectRow{
			ID:  row.ID,
			Val: row.Val,
			Up:  row.Up,
			Ord: row.Ord,
			Req: req,
		})
	}
	return out, nil
}

// CompactList builds the compact array variant: requisite values only, in
// column order, no keys.
func (e *Engine) CompactList(ctx context.Context, ns string, typeID int64, page repository.Page) (*CompactList, error) {
	_, reqs, err := e.reg.Type(ctx, ns, typeID)
	if err != nil {
		return nil, err
	}

	rows, err := e.st.ListByType(ctx, ns, typeID, page)
	if err != nil {
		return nil, err
	}

	out := &CompactList{D: make([]CompactRow, 0, len(rows))}
	for _, row := range rows {
		values, err := e.st.Values(ctx, ns, row.ID)
		if err != nil {
			return nil, err
		}
		var flat []string
		for _, req := range reqs {
			flat = append(flat, values[req.ID]...)
		}
		out.D = append(out.D, CompactRow{
			I: row.ID,
			U: row.Up,
			O: row.Ord,
			V: flat,
		})
	}
	return out, nil
}

// TypeMeta builds the metadata shape for one type.
func (e *Engine) TypeMeta(ctx context.Context, ns string, typeID int64) (*TypeMeta, error) {
	tv, reqs, err := e.reg.Type(ctx, ns, typeID)
	if err != nil {
		return nil, err
	}

	meta := &TypeMeta{
		ID:     tv.ID,
		Val:    tv.Name,
		Up:     domain.TypeUp,
		Base:   tv.Base.String(),
		Unique: tv.Unique,
		Req:    make([]ReqMeta, 0, len(reqs)),
	}
	for _, req := range reqs {
		meta.Req = append(meta.Req, ReqMeta{
			ID:       req.ID,
			Name:     req.Modifier.Name,
			Alias:    req.Modifier.Alias,
			Required: req.Modifier.Required,
			Multi:    req.Modifier.Multi,
			Base:     req.Kind().String(),
			BaseID:   req.Typ,
		})
	}
	return meta, nil
}

// AllMeta builds the metadata shape for every type in the namespace.
func (e *Engine) AllMeta(ctx context.Context, ns string) ([]*TypeMeta, error) {
	types, err := e.reg.Types(ctx, ns)
	if err != nil {
		return nil, err
	}
	out := make([]*TypeMeta, 0, len(types))
	for _, tv := range types {
		meta, err := e.TypeMeta(ctx, ns, tv.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}

// Dictionary builds the id→value map for a type, for the keyvalue variant.
func (e *Engine) Dictionary(ctx context.Context, ns string, typeID int64, page repository.Page) (map[string]string, error) {
	rows, err := e.st.ListByType(ctx, ns, typeID, page)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[strconv.FormatInt(row.ID, 10)] = row.Val
	}
	return out, nil
}

// RefOptions resolves the selectable options for a reference requisite:
// the data objects of the target type, in listing order.
func (e *Engine) RefOptions(ctx context.Context, ns string, reqID int64, page repository.Page) ([]Option, error) {
	values, err := e.reqTarget(ctx, ns, reqID)
	if err != nil {
		return nil, err
	}
	rows, err := e.st.ListByType(ctx, ns, values, page)
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(rows))
	for _, row := range rows {
		out = append(out, Option{ID: row.ID, Val: row.Val})
	}
	return out, nil
}

// ResolveAlias maps a requisite alias to its id within a type. Returns 0
// when no requisite carries the alias.
func (e *Engine) ResolveAlias(ctx context.Context, ns string, typeID int64, alias string) (int64, error) {
	_, reqs, err := e.reg.Type(ctx, ns, typeID)
	if err != nil {
		return 0, err
	}
	for _, req := range reqs {
		if req.Modifier.Alias == alias {
			return req.ID, nil
		}
	}
	return 0, nil
}

// Term resolves an object id to its display value, for label lookups.
func (e *Engine) Term(ctx context.Context, ns string, id int64) (string, error) {
	obj, err := e.st.Get(ctx, ns, id)
	if err != nil {
		return "", err
	}
	return obj.Val, nil
}

func (e *Engine) reqTarget(ctx context.Context, ns string, reqID int64) (int64, error) {
	req, err := e.reg.Requisite(ctx, ns, reqID)
	if err != nil {
		return 0, err
	}
	if !domain.IsReference(req.Typ) {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadRequest,
			"requisite is not a reference")
	}
	return req.Typ, nil
}
