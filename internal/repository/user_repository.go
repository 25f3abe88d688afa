package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yourorg/userhub/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL.
// The unique indexes on (tenant_id, username) and (tenant_id, email) are the
// authoritative uniqueness guarantee; violations raised by concurrent writes
// are mapped to domain.DuplicateError.
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user row. created_at and updated_at are assigned by
// the database from the same statement timestamp.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, username, full_name, email, mobile_number, language, culture, password_hash, password_salt, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.FullName,
		user.Email,
		user.MobileNumber,
		user.Language,
		user.Culture,
		user.PasswordHash,
		user.PasswordSalt,
		user.TenantID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		r.logger.Error("failed to create user",
			slog.String("username", user.Username),
			slog.String("tenant_id", user.TenantID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by (id, tenant_id). A row owned by a different
// tenant is indistinguishable from a missing row.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.User, error) {
	user := &domain.User{}

	query := `
		SELECT id, username, full_name, email, mobile_number, language, culture, password_hash, password_salt, tenant_id, created_at, updated_at
		FROM users
		WHERE id = $1 AND tenant_id = $2
	`

	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.Email,
		&user.MobileNumber,
		&user.Language,
		&user.Culture,
		&user.PasswordHash,
		&user.PasswordSalt,
		&user.TenantID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.logger.Error("failed to get user by id",
			slog.String("id", id),
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListByTenant lists all users owned by a tenant in stable insertion order.
func (r *PostgresUserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.User, error) {
	query := `
		SELECT id, username, full_name, email, mobile_number, language, culture, password_hash, password_salt, tenant_id, created_at, updated_at
		FROM users
		WHERE tenant_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		r.logger.Error("failed to list users by tenant",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.FullName,
			&user.Email,
			&user.MobileNumber,
			&user.Language,
			&user.Culture,
			&user.PasswordHash,
			&user.PasswordSalt,
			&user.TenantID,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UsernameExists reports whether any user in the tenant owns the username.
func (r *PostgresUserRepository) UsernameExists(ctx context.Context, tenantID, username string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM users WHERE tenant_id = $1 AND username = $2)`

	if err := r.db.QueryRowContext(ctx, query, tenantID, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}

	return exists, nil
}

// EmailExists reports whether another user in the tenant owns the email,
// skipping excludeID when set.
func (r *PostgresUserRepository) EmailExists(ctx context.Context, tenantID, email, excludeID string) (bool, error) {
	var (
		exists bool
		err    error
	)

	if excludeID == "" {
		query := `SELECT EXISTS (SELECT 1 FROM users WHERE tenant_id = $1 AND email = $2)`
		err = r.db.QueryRowContext(ctx, query, tenantID, email).Scan(&exists)
	} else {
		query := `SELECT EXISTS (SELECT 1 FROM users WHERE tenant_id = $1 AND email = $2 AND id <> $3)`
		err = r.db.QueryRowContext(ctx, query, tenantID, email, excludeID).Scan(&exists)
	}

	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}

	return exists, nil
}

// Update persists the mutable fields of a user and unconditionally advances
// updated_at, scoped to the owning tenant.
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET full_name = $1, email = $2, mobile_number = $3, language = $4, culture = $5, updated_at = now()
		WHERE id = $6 AND tenant_id = $7
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.FullName,
		user.Email,
		user.MobileNumber,
		user.Language,
		user.Culture,
		user.ID,
		user.TenantID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		r.logger.Error("failed to update user",
			slog.String("id", user.ID),
			slog.String("tenant_id", user.TenantID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// Delete hard-deletes a user row scoped to the owning tenant.
func (r *PostgresUserRepository) Delete(ctx context.Context, id, tenantID string) error {
	query := `DELETE FROM users WHERE id = $1 AND tenant_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}
