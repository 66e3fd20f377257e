// Package common defines shared constants and sentinel errors used across
// PersoNews components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Gateway-level errors.
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnavailable    = errors.New("service unavailable")

	// Reconciliation errors.
	ErrIdentityMismatch = errors.New("identity email does not match staged registration")
	ErrDraftNotFound    = errors.New("no pending registration found")
)

// IsRecoverable reports whether the error describes a condition the user can
// act on directly, as opposed to an internal failure. Validation errors
// (which carry their own field messages) and the sentinel errors below all
// keep the user in the current flow.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrIdentityMismatch) ||
		errors.Is(err, ErrDraftNotFound) ||
		errors.Is(err, ErrUnavailable)
}
