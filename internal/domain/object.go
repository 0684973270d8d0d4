package domain

// Object is one row of the generic arena. Types, requisite definitions,
// data objects, and attribute values all share this shape; integer ids are
// the only reference mechanism, which keeps cyclic type references safe.
type Object struct {
	ID  int64  `json:"id"`
	Val string `json:"val"`
	Up  int64  `json:"up"`
	Ord int    `json:"ord"`
	Typ int64  `json:"typ"`
}

// RootUp values: legacy data marks independent objects with up of 0 or 1
// interchangeably. TypeUp is the arena parent of every type row.
const (
	TypeUp = 1
)

// IsRoot reports whether the object is an independent root row.
func (o Object) IsRoot() bool {
	return o.Up == 0 || o.Up == 1
}

// TypeView is a decoded schema type row.
type TypeView struct {
	ID     int64
	Name   string
	Base   BaseKind
	Unique bool
	Ord    int
}

// ReqView is a decoded requisite definition row.
type ReqView struct {
	ID       int64
	TypeID   int64
	Typ      int64 // base kind id, or target type id for references
	Ord      int
	Modifier Modifier
}

// Kind resolves the requisite's effective base kind.
func (r ReqView) Kind() BaseKind {
	return ResolveKind(r.Typ)
}

// TypeViewOf decodes an arena row into a schema type view.
func TypeViewOf(o Object) TypeView {
	name, unique := DecodeTypeName(o.Val)
	return TypeView{
		ID:     o.ID,
		Name:   name,
		Base:   BaseKind(o.Typ),
		Unique: unique,
		Ord:    o.Ord,
	}
}

// ReqViewOf decodes an arena row into a requisite view.
func ReqViewOf(o Object) ReqView {
	return ReqView{
		ID:       o.ID,
		TypeID:   o.Up,
		Typ:      o.Typ,
		Ord:      o.Ord,
		Modifier: DecodeModifier(o.Val),
	}
}
