package domain

import "testing"

func TestModifier_EncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		mod  Modifier
		want string
	}{
		{"plain", Modifier{Name: "Email"}, "Email"},
		{"alias", Modifier{Name: "Email", Alias: "E-Mail"}, "Email [E-Mail]"},
		{"required", Modifier{Name: "Email", Required: true}, "Email NOT NULL"},
		{"multi", Modifier{Name: "Email", Multi: true}, "Email MULTI"},
		{
			"all",
			Modifier{Name: "Email", Alias: "E-Mail", Required: true, Multi: true},
			"Email [E-Mail] NOT NULL MULTI",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mod.Encode()
			if got != tt.want {
				t.Fatalf("Encode() = %q, want %q", got, tt.want)
			}
			back := DecodeModifier(got)
			if back != tt.mod {
				t.Errorf("DecodeModifier(%q) = %+v, want %+v", got, back, tt.mod)
			}
		})
	}
}

func TestDecodeModifier_MarkersAnywhere(t *testing.T) {
	// Legacy rows sometimes carry markers out of canonical order.
	m := DecodeModifier("Email MULTI [E-Mail] NOT NULL")
	if !m.Multi || !m.Required {
		t.Errorf("flags = multi %v required %v, want both true", m.Multi, m.Required)
	}
	if m.Alias != "E-Mail" {
		t.Errorf("Alias = %q, want E-Mail", m.Alias)
	}
	if m.Name != "Email" {
		t.Errorf("Name = %q, want Email", m.Name)
	}
}

func TestDecodeModifier_UnclosedAliasIgnored(t *testing.T) {
	m := DecodeModifier("Email [broken")
	if m.Alias != "" {
		t.Errorf("Alias = %q, want empty", m.Alias)
	}
	if m.Name != "Email [broken" {
		t.Errorf("Name = %q, want the raw string", m.Name)
	}
}

func TestTypeName_EncodeDecode(t *testing.T) {
	s := EncodeTypeName("Person", true)
	if s != "Person UNIQUE" {
		t.Fatalf("EncodeTypeName() = %q", s)
	}
	name, unique := DecodeTypeName(s)
	if name != "Person" || !unique {
		t.Errorf("DecodeTypeName(%q) = %q, %v", s, name, unique)
	}

	name, unique = DecodeTypeName("Person")
	if name != "Person" || unique {
		t.Errorf("DecodeTypeName(plain) = %q, %v", name, unique)
	}
}
