package auth

import (
	"regexp"
	"testing"
)

var hexRe = regexp.MustCompile(`^[0-9a-f]+$`)

func TestPasswordDigest(t *testing.T) {
	d1, err := PasswordDigest("alice", "secret", "demo")
	if err != nil {
		t.Fatalf("PasswordDigest() error = %v", err)
	}
	if len(d1) != 40 || !hexRe.MatchString(d1) {
		t.Fatalf("digest = %q, want 40 lower-case hex chars", d1)
	}

	// Username case must not matter; anything else must.
	d2, _ := PasswordDigest("ALICE", "secret", "demo")
	if d2 != d1 {
		t.Error("digest is case-sensitive in username")
	}
	d3, _ := PasswordDigest("alice", "Secret", "demo")
	if d3 == d1 {
		t.Error("digest ignores password case")
	}
	d4, _ := PasswordDigest("alice", "secret", "other")
	if d4 == d1 {
		t.Error("digest ignores namespace")
	}
	d5, _ := PasswordDigest("alice", "demo", "secret")
	if d5 == d1 {
		t.Error("digest is not order-sensitive in namespace and password")
	}
}

func TestPasswordDigest_EmptyInputs(t *testing.T) {
	for _, args := range [][3]string{
		{"", "p", "ns"},
		{"u", "", "ns"},
		{"u", "p", ""},
	} {
		if _, err := PasswordDigest(args[0], args[1], args[2]); err == nil {
			t.Errorf("PasswordDigest(%q, %q, %q) error = nil, want error", args[0], args[1], args[2])
		}
	}
}

func TestXSRFToken(t *testing.T) {
	x1, err := XSRFToken("abc123", "demo")
	if err != nil {
		t.Fatalf("XSRFToken() error = %v", err)
	}
	if len(x1) != XSRFLen || !hexRe.MatchString(x1) {
		t.Fatalf("xsrf = %q, want %d hex chars", x1, XSRFLen)
	}

	x2, _ := XSRFToken("ABC123", "demo")
	if x2 != x1 {
		t.Error("xsrf is case-sensitive in token")
	}
	x3, _ := XSRFToken("abc123", "other")
	if x3 == x1 {
		t.Error("xsrf ignores namespace")
	}

	if _, err := XSRFToken("", "demo"); err == nil {
		t.Error("XSRFToken with empty token: error = nil")
	}
}

func TestOpaqueToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := OpaqueToken()
		if len(tok) != 32 || !hexRe.MatchString(tok) {
			t.Fatalf("token = %q, want 32 hex chars", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
