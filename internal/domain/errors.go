package domain

import (
	"errors"
	"strings"
)

// ErrUserNotFound is returned when no user matches (id, tenant_id). A row
// owned by a different tenant yields the same error as a missing row.
var ErrUserNotFound = errors.New("user not found")

// ErrTenantNotFound is returned when no active tenant matches a lookup.
var ErrTenantNotFound = errors.New("tenant not found")

// DuplicateError reports a per-tenant uniqueness violation on username or
// email, whether detected by the application check or by the storage
// constraint.
type DuplicateError struct {
	Field string // "username" or "email"
}

func (e *DuplicateError) Error() string {
	return e.Field + " already exists"
}

// ValidationError reports malformed or missing input. It is never retried
// and maps to a client error at the boundary.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}
