package domain

import "strings"

// Legacy modifier markers. Clients parse the encoded value by substring
// search, so the exact byte sequences are part of the wire contract.
const (
	markRequired = " NOT NULL"
	markMulti    = " MULTI"
	markUnique   = " UNIQUE"
	markAliasOp  = " ["
	markAliasCl  = "]"
)

// Modifier is the decoded form of a requisite's encoded value string.
type Modifier struct {
	Name     string
	Alias    string
	Required bool
	Multi    bool
}

// Encode packs the modifier into the legacy single-string form.
// Write order is fixed: alias first, required second, multi third.
func (m Modifier) Encode() string {
	var b strings.Builder
	b.WriteString(m.Name)
	if m.Alias != "" {
		b.WriteString(markAliasOp)
		b.WriteString(m.Alias)
		b.WriteString(markAliasCl)
	}
	if m.Required {
		b.WriteString(markRequired)
	}
	if m.Multi {
		b.WriteString(markMulti)
	}
	return b.String()
}

// DecodeModifier unpacks the legacy encoded string. Each marker is located
// independently by substring search and stripped; the residual text is the
// display name. Decoding then re-encoding a string produced by Encode
// reproduces it byte for byte.
func DecodeModifier(s string) Modifier {
	var m Modifier
	s, m.Required = stripMarker(s, markRequired)
	s, m.Multi = stripMarker(s, markMulti)
	s, m.Alias = stripAlias(s)
	m.Name = s
	return m
}

// EncodeTypeName packs a type display name with its uniqueness marker.
func EncodeTypeName(name string, unique bool) string {
	if unique {
		return name + markUnique
	}
	return name
}

// DecodeTypeName unpacks a type value into display name and uniqueness flag.
func DecodeTypeName(s string) (string, bool) {
	s, unique := stripMarker(s, markUnique)
	return s, unique
}

func stripMarker(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return s, false
	}
	return s[:i] + s[i+len(marker):], true
}

func stripAlias(s string) (string, string) {
	i := strings.Index(s, markAliasOp)
	if i < 0 {
		return s, ""
	}
	j := strings.Index(s[i+len(markAliasOp):], markAliasCl)
	if j < 0 {
		return s, ""
	}
	alias := s[i+len(markAliasOp) : i+len(markAliasOp)+j]
	return s[:i] + s[i+len(markAliasOp)+j+len(markAliasCl):], alias
}
