package common

import "strings"

// NormalizeEmail trims surrounding whitespace and lowercases an email
// address. Both the staged registration and the confirmed identity go through
// this before any comparison or write, so casing differences between what the
// visitor typed and what the identity service stored never cause a mismatch.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
