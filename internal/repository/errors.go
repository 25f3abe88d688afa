package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/yourorg/userhub/internal/domain"
)

// Constraint names from the schema; the colliding field is derived from the
// constraint that fired so a race lost at the index reports the same error
// as one caught by the application-level check.
const (
	constraintTenantUsername = "uq_users_tenant_username"
	constraintTenantEmail    = "uq_users_tenant_email"
)

const uniqueViolationCode = "23505"

// mapUniqueViolation converts a PostgreSQL unique-constraint violation into
// a domain.DuplicateError. It returns nil for any other error.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolationCode {
		return nil
	}

	switch pqErr.Constraint {
	case constraintTenantUsername:
		return &domain.DuplicateError{Field: "username"}
	case constraintTenantEmail:
		return &domain.DuplicateError{Field: "email"}
	default:
		return &domain.DuplicateError{Field: "user"}
	}
}
