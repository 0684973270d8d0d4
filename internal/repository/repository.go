// Package repository provides persistence for the object arena, users, and
// namespaces. The PostgreSQL implementation shares one pgx pool; an in-memory
// implementation backs unit tests.
package repository

import (
	"context"

	"objbase.io/objbase/internal/domain"
)

// User is a stored namespace account. Digest and Token hold the legacy
// derivations; Token is the stored opaque session token.
type User struct {
	ID     int64
	Name   string
	Digest string
	Token  string
	Role   string
}

// Page is an explicit limit/offset pair. A zero Limit means MaxPageSize,
// never unbounded.
type Page struct {
	Limit  int
	Offset int
}

// MaxPageSize caps every listing.
const MaxPageSize = 1000

// Clamp resolves the page against MaxPageSize.
func (p Page) Clamp() Page {
	if p.Limit <= 0 || p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Objects is the arena persistence boundary. All listings return rows
// ordered by ord ascending with id as tie-break.
type Objects interface {
	NextID(ctx context.Context, ns string) (int64, error)
	Get(ctx context.Context, ns string, id int64) (domain.Object, error)
	Insert(ctx context.Context, ns string, o domain.Object) error
	SetVal(ctx context.Context, ns string, id int64, val string) error
	SetOrd(ctx context.Context, ns string, id int64, ord int) error
	SetUp(ctx context.Context, ns string, id, up int64) error
	ReassignID(ctx context.Context, ns string, oldID, newID int64) error
	Delete(ctx context.Context, ns string, id int64) error
	DeleteMany(ctx context.Context, ns string, ids []int64) error

	ListByTyp(ctx context.Context, ns string, typ int64, page Page) ([]domain.Object, error)
	CountByTyp(ctx context.Context, ns string, typ int64) (int64, error)
	ListByUp(ctx context.Context, ns string, up int64) ([]domain.Object, error)
	ListByUpTyp(ctx context.Context, ns string, up, typ int64) ([]domain.Object, error)
	MaxOrd(ctx context.Context, ns string, up, typ int64) (int, error)
}

// Users is the account persistence boundary.
type Users interface {
	GetByName(ctx context.Context, ns, name string) (User, error)
	GetByToken(ctx context.Context, ns, token string) (User, error)
	Insert(ctx context.Context, ns string, u User) error
	SetDigest(ctx context.Context, ns string, id int64, digest string) error
	SetToken(ctx context.Context, ns string, id int64, token string) error
}

// Namespaces is the namespace catalog boundary.
type Namespaces interface {
	Create(ctx context.Context, ns string) error
	Exists(ctx context.Context, ns string) (bool, error)
}

// Audit records mutating actions. Writes are best effort.
type Audit interface {
	Append(ctx context.Context, ns, actor, action string, objectID int64, detail string) error
}

// Repo bundles all persistence boundaries behind one transactional root.
// WithTx runs fn against a transaction-scoped Repo; any error rolls back,
// so a concurrent reader never observes a partially applied mutation.
type Repo interface {
	Objects() Objects
	Users() Users
	Namespaces() Namespaces
	Audit() Audit
	WithTx(ctx context.Context, fn func(Repo) error) error
}
