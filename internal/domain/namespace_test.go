package domain

import "testing"

func TestValidNamespace(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"demo", true},
		{"a1", true},
		{"Base_2", true},
		{"x23456789012345", true},

		{"", false},
		{"a", false},
		{"1demo", false},
		{"_demo", false},
		{"de mo", false},
		{"de-mo", false},
		{"x234567890123456", false},
	}

	for _, tt := range tests {
		if got := ValidNamespace(tt.name); got != tt.want {
			t.Errorf("ValidNamespace(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
