package domain

import "regexp"

// namespaceRe is the legacy namespace naming rule: one letter followed by
// 1 to 14 word characters, case-insensitive.
var namespaceRe = regexp.MustCompile(`^[A-Za-z]\w{1,14}$`)

// ValidNamespace reports whether name satisfies the legacy naming rule.
// Enforced on every namespace-accepting entry point before any store access.
func ValidNamespace(name string) bool {
	return namespaceRe.MatchString(name)
}
