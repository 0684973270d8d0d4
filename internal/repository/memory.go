package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
)

// Memory implements Repo in process memory. It backs unit tests of the
// schema registry, entity store, projection engine, and dispatcher, and
// mirrors the PostgreSQL semantics including the sibling-order constraint.
// Like the deferred constraint, transactions check (up, typ, ord)
// uniqueness at commit so MoveUp can swap two orders mid-transaction.
type Memory struct {
	mu   sync.Mutex
	inTx bool

	data *memData
}

type memData struct {
	spaces map[string]*memSpace
	audit  []AuditRecord
}

type memSpace struct {
	nextID  int64
	objects map[int64]domain.Object
	users   map[int64]User
}

// AuditRecord is one in-memory audit trail entry.
type AuditRecord struct {
	NS       string
	Actor    string
	Action   string
	ObjectID int64
	Detail   string
}

// NewMemory creates an empty in-memory Repo.
func NewMemory() *Memory {
	return &Memory{data: &memData{spaces: map[string]*memSpace{}}}
}

func (m *Memory) Objects() Objects       { return &memObjects{m} }
func (m *Memory) Users() Users           { return &memUsers{m} }
func (m *Memory) Namespaces() Namespaces { return &memNamespaces{m} }
func (m *Memory) Audit() Audit           { return &memAudit{m} }

// WithTx runs fn under the store lock and rolls the whole store back on
// error, so partially applied mutations are never observable.
func (m *Memory) WithTx(ctx context.Context, fn func(Repo) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	tx := &Memory{inTx: true, data: m.data}
	err := fn(tx)
	if err == nil {
		for _, sp := range m.data.spaces {
			if siblingOrdConflict(sp) {
				err = errDuplicateOrder()
				break
			}
		}
	}
	if err != nil {
		m.data.spaces = snapshot.spaces
		m.data.audit = snapshot.audit
		return err
	}
	return nil
}

// siblingOrdConflict reports whether two rows share (up, typ, ord).
func siblingOrdConflict(sp *memSpace) bool {
	seen := make(map[[3]int64]struct{}, len(sp.objects))
	for _, o := range sp.objects {
		key := [3]int64{o.Up, o.Typ, int64(o.Ord)}
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

func errDuplicateOrder() error {
	return apperrors.Conflict(apperrors.CodeDuplicateOrder, "duplicate sibling order")
}

// AuditRecords returns a copy of the audit trail, for tests.
func (m *Memory) AuditRecords() []AuditRecord {
	m.lock()
	defer m.unlock()
	out := make([]AuditRecord, len(m.data.audit))
	copy(out, m.data.audit)
	return out
}

func (m *Memory) lock() {
	if !m.inTx {
		m.mu.Lock()
	}
}

func (m *Memory) unlock() {
	if !m.inTx {
		m.mu.Unlock()
	}
}

func (d *memData) clone() *memData {
	out := &memData{spaces: make(map[string]*memSpace, len(d.spaces))}
	for name, sp := range d.spaces {
		cp := &memSpace{
			nextID:  sp.nextID,
			objects: make(map[int64]domain.Object, len(sp.objects)),
			users:   make(map[int64]User, len(sp.users)),
		}
		for id, o := range sp.objects {
			cp.objects[id] = o
		}
		for id, u := range sp.users {
			cp.users[id] = u
		}
		out.spaces[name] = cp
	}
	out.audit = make([]AuditRecord, len(d.audit))
	copy(out.audit, d.audit)
	return out
}

func (m *Memory) space(ns string) (*memSpace, error) {
	sp, ok := m.data.spaces[ns]
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeNamespaceNotFound, "namespace not found: "+ns)
	}
	return sp, nil
}

func sortObjects(out []domain.Object) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ord != out[j].Ord {
			return out[i].Ord < out[j].Ord
		}
		return out[i].ID < out[j].ID
	})
}

type memObjects struct{ m *Memory }

func (r *memObjects) NextID(ctx context.Context, ns string) (int64, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return 0, err
	}
	id := sp.nextID
	sp.nextID++
	return id, nil
}

func (r *memObjects) Get(ctx context.Context, ns string, id int64) (domain.Object, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return domain.Object{}, err
	}
	o, ok := sp.objects[id]
	if !ok {
		return domain.Object{}, apperrors.NotFound(apperrors.CodeObjectNotFound, "object not found")
	}
	return o, nil
}

func (r *memObjects) Insert(ctx context.Context, ns string, o domain.Object) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	if _, exists := sp.objects[o.ID]; exists {
		return apperrors.Conflict(apperrors.CodeIDTaken, "object id already taken")
	}
	sp.objects[o.ID] = o
	if !r.m.inTx && siblingOrdConflict(sp) {
		delete(sp.objects, o.ID)
		return errDuplicateOrder()
	}
	return nil
}

func (r *memObjects) SetVal(ctx context.Context, ns string, id int64, val string) error {
	return r.update(ns, id, func(o *domain.Object) { o.Val = val })
}

func (r *memObjects) SetOrd(ctx context.Context, ns string, id int64, ord int) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	o, ok := sp.objects[id]
	if !ok {
		return apperrors.NotFound(apperrors.CodeObjectNotFound, "object not found")
	}
	prev := o.Ord
	o.Ord = ord
	sp.objects[id] = o
	if !r.m.inTx && siblingOrdConflict(sp) {
		o.Ord = prev
		sp.objects[id] = o
		return errDuplicateOrder()
	}
	return nil
}

func (r *memObjects) SetUp(ctx context.Context, ns string, id, up int64) error {
	return r.update(ns, id, func(o *domain.Object) { o.Up = up })
}

func (r *memObjects) ReassignID(ctx context.Context, ns string, oldID, newID int64) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	o, ok := sp.objects[oldID]
	if !ok {
		return apperrors.NotFound(apperrors.CodeObjectNotFound, "object not found")
	}
	if _, taken := sp.objects[newID]; taken {
		return apperrors.Conflict(apperrors.CodeIDTaken, "object id already taken")
	}
	delete(sp.objects, oldID)
	o.ID = newID
	sp.objects[newID] = o
	for id, child := range sp.objects {
		if child.Up == oldID {
			child.Up = newID
			sp.objects[id] = child
		}
		if child.Typ == oldID {
			child.Typ = newID
			sp.objects[id] = child
		}
	}
	return nil
}

func (r *memObjects) Delete(ctx context.Context, ns string, id int64) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	if _, ok := sp.objects[id]; !ok {
		return apperrors.NotFound(apperrors.CodeObjectNotFound, "object not found")
	}
	delete(sp.objects, id)
	return nil
}

func (r *memObjects) DeleteMany(ctx context.Context, ns string, ids []int64) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(sp.objects, id)
	}
	return nil
}

func (r *memObjects) ListByTyp(ctx context.Context, ns string, typ int64, page Page) ([]domain.Object, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return nil, err
	}
	var out []domain.Object
	for _, o := range sp.objects {
		if o.Typ == typ && !definitionRow(sp, o) {
			out = append(out, o)
		}
	}
	sortObjects(out)
	page = page.Clamp()
	if page.Offset >= len(out) {
		return nil, nil
	}
	out = out[page.Offset:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r *memObjects) CountByTyp(ctx context.Context, ns string, typ int64) (int64, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, o := range sp.objects {
		if o.Typ == typ && !definitionRow(sp, o) {
			n++
		}
	}
	return n, nil
}

// definitionRow reports whether o is a requisite definition, that is a row
// owned by a type-defining row. A reference requisite's typ holds its target
// type id, so ListByTyp and CountByTyp must leave these rows out.
func definitionRow(sp *memSpace, o domain.Object) bool {
	parent, ok := sp.objects[o.Up]
	if !ok {
		return false
	}
	return parent.Up == domain.TypeUp && domain.BaseKind(parent.Typ).Valid()
}

func (r *memObjects) ListByUp(ctx context.Context, ns string, up int64) ([]domain.Object, error) {
	return r.filter(ns, func(o domain.Object) bool { return o.Up == up })
}

func (r *memObjects) ListByUpTyp(ctx context.Context, ns string, up, typ int64) ([]domain.Object, error) {
	return r.filter(ns, func(o domain.Object) bool { return o.Up == up && o.Typ == typ })
}

func (r *memObjects) MaxOrd(ctx context.Context, ns string, up, typ int64) (int, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, o := range sp.objects {
		if o.Up == up && o.Typ == typ && o.Ord > max {
			max = o.Ord
		}
	}
	return max, nil
}

func (r *memObjects) filter(ns string, keep func(domain.Object) bool) ([]domain.Object, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return nil, err
	}
	var out []domain.Object
	for _, o := range sp.objects {
		if keep(o) {
			out = append(out, o)
		}
	}
	sortObjects(out)
	if len(out) > MaxPageSize {
		out = out[:MaxPageSize]
	}
	return out, nil
}

func (r *memObjects) update(ns string, id int64, mutate func(*domain.Object)) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	o, ok := sp.objects[id]
	if !ok {
		return apperrors.NotFound(apperrors.CodeObjectNotFound, "object not found")
	}
	mutate(&o)
	sp.objects[id] = o
	return nil
}

type memUsers struct{ m *Memory }

func (r *memUsers) GetByName(ctx context.Context, ns, name string) (User, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return User{}, err
	}
	for _, u := range sp.users {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return User{}, apperrors.NotFound(apperrors.CodeUserNotFound, "user not found")
}

func (r *memUsers) GetByToken(ctx context.Context, ns, token string) (User, error) {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return User{}, err
	}
	for _, u := range sp.users {
		if u.Token != "" && u.Token == token {
			return u, nil
		}
	}
	return User{}, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "unknown token")
}

func (r *memUsers) Insert(ctx context.Context, ns string, u User) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	for _, existing := range sp.users {
		if strings.EqualFold(existing.Name, u.Name) || (u.Token != "" && existing.Token == u.Token) {
			return apperrors.Conflict(apperrors.CodeUserExists, "user name or token already taken")
		}
	}
	sp.users[u.ID] = u
	return nil
}

func (r *memUsers) SetDigest(ctx context.Context, ns string, id int64, digest string) error {
	return r.update(ns, id, func(u *User) { u.Digest = digest })
}

func (r *memUsers) SetToken(ctx context.Context, ns string, id int64, token string) error {
	return r.update(ns, id, func(u *User) { u.Token = token })
}

func (r *memUsers) update(ns string, id int64, mutate func(*User)) error {
	r.m.lock()
	defer r.m.unlock()
	sp, err := r.m.space(ns)
	if err != nil {
		return err
	}
	u, ok := sp.users[id]
	if !ok {
		return apperrors.NotFound(apperrors.CodeUserNotFound, "user not found")
	}
	mutate(&u)
	sp.users[id] = u
	return nil
}

type memNamespaces struct{ m *Memory }

func (r *memNamespaces) Create(ctx context.Context, ns string) error {
	r.m.lock()
	defer r.m.unlock()
	if _, exists := r.m.data.spaces[ns]; exists {
		return apperrors.Conflict(apperrors.CodeNamespaceExists, "namespace already exists: "+ns)
	}
	r.m.data.spaces[ns] = &memSpace{
		nextID:  domain.FirstUserID,
		objects: map[int64]domain.Object{},
		users:   map[int64]User{},
	}
	return nil
}

func (r *memNamespaces) Exists(ctx context.Context, ns string) (bool, error) {
	r.m.lock()
	defer r.m.unlock()
	_, ok := r.m.data.spaces[ns]
	return ok, nil
}

type memAudit struct{ m *Memory }

func (r *memAudit) Append(ctx context.Context, ns, actor, action string, objectID int64, detail string) error {
	r.m.lock()
	defer r.m.unlock()
	r.m.data.audit = append(r.m.data.audit, AuditRecord{
		NS:       ns,
		Actor:    actor,
		Action:   action,
		ObjectID: objectID,
		Detail:   detail,
	})
	return nil
}
