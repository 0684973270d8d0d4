// Package domain holds the object-arena model shared by the schema registry,
// entity store, and projection engine: base kinds, the modifier codec, and
// namespace naming rules.
package domain

// BaseKind identifies the fundamental kind a type or requisite behaves as.
// The set is closed; ids below FirstUserID are reserved for base kinds.
type BaseKind int64

const (
	KindTable   BaseKind = 1 // container
	KindString  BaseKind = 2 // short text
	KindText    BaseKind = 3 // long text
	KindNumber  BaseKind = 4
	KindDate    BaseKind = 5
	KindCheck   BaseKind = 6 // boolean
	KindFile    BaseKind = 7
	KindGrant   BaseKind = 8
	KindRefBase BaseKind = 9 // marker kind for reference requisites in metadata
)

// FirstUserID is the first id handed out to user-created types and objects.
// Every typ value at or above it denotes a reference to that type.
const FirstUserID = 100

var kindNames = map[BaseKind]string{
	KindTable:   "table",
	KindString:  "string",
	KindText:    "text",
	KindNumber:  "number",
	KindDate:    "date",
	KindCheck:   "check",
	KindFile:    "file",
	KindGrant:   "grant",
	KindRefBase: "reference",
}

// Valid reports whether k is a known base kind usable as a requisite kind.
func (k BaseKind) Valid() bool {
	_, ok := kindNames[k]
	return ok && k != KindRefBase
}

// String returns the legacy display name of the base kind.
func (k BaseKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsReference reports whether a requisite typ value denotes a reference
// to a user-created type rather than a base kind.
func IsReference(typ int64) bool {
	return typ >= FirstUserID
}

// ResolveKind maps a requisite typ value to its effective base kind.
// Reference requisites resolve to KindRefBase.
func ResolveKind(typ int64) BaseKind {
	if IsReference(typ) {
		return KindRefBase
	}
	return BaseKind(typ)
}
