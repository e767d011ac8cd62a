// Package normalize holds small input-normalization helpers shared by the
// sync layer and the HTTP surface. Invitation documents are keyed by the
// normalized recipient email, so every path that touches an invitation
// must agree on this normalization.
package normalize

import "strings"

// Email lower-cases and trims an email address. Returns "" for blank input.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}
