package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/userhub/internal/domain"
)

func TestMapUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantField  string
		wantMapped bool
	}{
		{
			name:       "username constraint",
			err:        &pq.Error{Code: "23505", Constraint: constraintTenantUsername},
			wantField:  "username",
			wantMapped: true,
		},
		{
			name:       "email constraint",
			err:        &pq.Error{Code: "23505", Constraint: constraintTenantEmail},
			wantField:  "email",
			wantMapped: true,
		},
		{
			name:       "wrapped violation",
			err:        fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: constraintTenantEmail}),
			wantField:  "email",
			wantMapped: true,
		},
		{
			name:       "other pq error",
			err:        &pq.Error{Code: "23503"},
			wantMapped: false,
		},
		{
			name:       "plain error",
			err:        errors.New("connection refused"),
			wantMapped: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapUniqueViolation(tc.err)
			if !tc.wantMapped {
				require.Nil(t, mapped)
				return
			}
			var dup *domain.DuplicateError
			require.ErrorAs(t, mapped, &dup)
			require.Equal(t, tc.wantField, dup.Field)
		})
	}
}
