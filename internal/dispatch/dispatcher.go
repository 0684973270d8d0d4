// Package dispatch maps the legacy action vocabulary onto schema and store
// mutations. The action code arrives as a literal query/body key; unknown
// codes fail with UnknownAction before any store access.
package dispatch

import (
	"context"
	"strconv"
	"strings"

	"objbase.io/objbase/internal/audit"
	"objbase.io/objbase/internal/auth"
	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/projection"
	"objbase.io/objbase/internal/repository"
	"objbase.io/objbase/internal/schema"
	"objbase.io/objbase/internal/store"
)

// Action is a legacy operation code.
type Action string

// The fixed action vocabulary.
const (
	// DML
	ActCreate   Action = "create"
	ActSave     Action = "save"
	ActDelete   Action = "delete"
	ActMoveUp   Action = "moveup"
	ActSetOrder Action = "setorder"
	ActSetID    Action = "setid"

	// DDL
	ActCreateTable Action = "create_table"
	ActSaveTable   Action = "save_table"
	ActDeleteTable Action = "delete_table"
	ActCloneTable  Action = "clone_table"
	ActCreateReq   Action = "create_req"
	ActSetAlias    Action = "set_alias"
	ActSetNotNull  Action = "set_notnull"
	ActSetMulti    Action = "set_multi"
	ActSetReqOrder Action = "set_req_order"
	ActDeleteReq   Action = "delete_req"
	ActCreateRef   Action = "create_ref"
	ActSetReqAttrs Action = "set_req_attrs"
	ActSetUnique   Action = "set_unique"

	// Query
	ActDict   Action = "dict"
	ActList   Action = "list"
	ActMeta   Action = "meta"
	ActRefOpt Action = "refopt"
	ActTerm   Action = "term"
	ActReport Action = "report"
)

// attrPrefix is the legacy attribute-write key prefix: t<requisiteID>=<value>.
const attrPrefix = "t"

// requiredRole maps each action to the minimum namespace role.
var requiredRole = map[Action]auth.Role{
	ActCreate:   auth.RoleWriter,
	ActSave:     auth.RoleWriter,
	ActDelete:   auth.RoleWriter,
	ActMoveUp:   auth.RoleWriter,
	ActSetOrder: auth.RoleWriter,

	// Id reassignment is restricted to privileged actors.
	ActSetID: auth.RoleAdmin,

	ActCreateTable: auth.RoleAdmin,
	ActSaveTable:   auth.RoleAdmin,
	ActDeleteTable: auth.RoleAdmin,
	ActCloneTable:  auth.RoleAdmin,
	ActCreateReq:   auth.RoleAdmin,
	ActSetAlias:    auth.RoleAdmin,
	ActSetNotNull:  auth.RoleAdmin,
	ActSetMulti:    auth.RoleAdmin,
	ActSetReqOrder: auth.RoleAdmin,
	ActDeleteReq:   auth.RoleAdmin,
	ActCreateRef:   auth.RoleAdmin,
	ActSetReqAttrs: auth.RoleAdmin,
	ActSetUnique:   auth.RoleAdmin,

	ActDict:   auth.RoleReader,
	ActList:   auth.RoleReader,
	ActMeta:   auth.RoleReader,
	ActRefOpt: auth.RoleReader,
	ActTerm:   auth.RoleReader,
	ActReport: auth.RoleReader,
}

// IsMutating reports whether action changes data or schema.
func IsMutating(action Action) bool {
	role, ok := requiredRole[action]
	return ok && role != auth.RoleReader
}

// Known reports whether code is part of the action vocabulary.
func Known(code string) bool {
	_, ok := requiredRole[Action(code)]
	return ok
}

// FindAction scans request keys for an action code. The code is the key
// itself, not a value.
func FindAction(params Params) (Action, bool) {
	for key := range params {
		if Known(key) {
			return Action(key), true
		}
	}
	return "", false
}

// Params are the merged query/body parameters of a request.
type Params map[string][]string

// First returns the first value for key.
func (p Params) First(key string) string {
	if vs, ok := p[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Has reports whether key is present at all, regardless of value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Int64 parses the first value for key.
func (p Params) Int64(key string) (int64, error) {
	raw := p.First(key)
	if raw == "" {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadRequest, "missing parameter: "+key)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadRequest, "bad parameter "+key+": "+raw)
	}
	return n, nil
}

// AttrWrites extracts the t<requisiteID> attribute-write parameters,
// preserving multi-value write order. Absent keys mean "no change".
func (p Params) AttrWrites() (map[int64][]string, error) {
	out := make(map[int64][]string)
	for key, values := range p {
		if !strings.HasPrefix(key, attrPrefix) {
			continue
		}
		id, err := strconv.ParseInt(key[len(attrPrefix):], 10, 64)
		if err != nil || id < domain.FirstUserID {
			continue
		}
		out[id] = append(out[id], values...)
	}
	return out, nil
}

// Page reads the limit/offset pair.
func (p Params) Page() repository.Page {
	page := repository.Page{}
	if n, err := strconv.Atoi(p.First("limit")); err == nil {
		page.Limit = n
	}
	if n, err := strconv.Atoi(p.First("offset")); err == nil {
		page.Offset = n
	}
	return page.Clamp()
}

// Request is one dispatched operation.
type Request struct {
	NS     string
	Actor  auth.Identity
	Action Action
	Params Params
}

// Dispatcher routes actions to the registry, store, projection engine, and
// report runner.
type Dispatcher struct {
	reg     *schema.Registry
	st      *store.Store
	proj    *projection.Engine
	reports ReportRunner
	audit   *audit.Logger
}

// ReportRunner is the report execution boundary.
type ReportRunner interface {
	Run(ctx context.Context, ref, ns string, params map[string]string) ([]map[string]any, error)
}

// NewDispatcher creates an action dispatcher.
func NewDispatcher(reg *schema.Registry, st *store.Store, proj *projection.Engine, reports ReportRunner, auditLog *audit.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, st: st, proj: proj, reports: reports, audit: auditLog}
}

// Do validates the request guards and executes the action. Guard order:
// namespace name, action known, actor role; only then the store is touched.
func (d *Dispatcher) Do(ctx context.Context, req Request) (any, error) {
	if !domain.ValidNamespace(req.NS) {
		return nil, apperrors.ErrBadNamespace(req.NS)
	}
	role, ok := requiredRole[req.Action]
	if !ok {
		return nil, apperrors.ErrUnknownAction(string(req.Action))
	}
	if !req.Actor.Role.Allows(role) {
		return nil, apperrors.Forbidden(apperrors.CodeRoleDenied,
			"action requires role "+string(role))
	}

	result, err := d.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if role != auth.RoleReader {
		objectID, _ := req.Params.Int64("id")
		d.audit.Record(req.NS, req.Actor.Name, string(req.Action), objectID, "")
	}
	return result, nil
}
