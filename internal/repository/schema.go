package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied at startup; statements are idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id          UUID PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		api_key     VARCHAR(64) NOT NULL UNIQUE,
		is_active   BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      VARCHAR(32) NOT NULL,
		full_name     VARCHAR(256) NOT NULL,
		email         VARCHAR(256) NOT NULL,
		mobile_number VARCHAR(16) NOT NULL,
		language      VARCHAR(16) NOT NULL,
		culture       VARCHAR(16) NOT NULL,
		password_hash TEXT NOT NULL,
		password_salt TEXT NOT NULL,
		tenant_id     UUID NOT NULL REFERENCES tenants(id),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_users_tenant_username UNIQUE (tenant_id, username),
		CONSTRAINT uq_users_tenant_email UNIQUE (tenant_id, email)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_tenant_created ON users (tenant_id, created_at)`,
}

// Migrate applies the schema to the given database.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
