package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/observability/metrics"
)

// PasswordHasher derives and verifies stored password digests. The service
// never inspects credential material beyond handing it to this interface.
type PasswordHasher interface {
	Hash(password string) (hash, salt string, err error)
	Verify(password, storedHash, storedSalt string) (bool, error)
}

// CreateUserInput carries the fields required to sign up a user.
type CreateUserInput struct {
	Username     string `json:"username" validate:"required,max=32"`
	FullName     string `json:"fullName" validate:"required,max=256"`
	Email        string `json:"email" validate:"required,email,max=256"`
	MobileNumber string `json:"mobileNumber" validate:"required,max=16"`
	Language     string `json:"language" validate:"required,max=16"`
	Culture      string `json:"culture" validate:"required,max=16"`
	Password     string `json:"password" validate:"required,min=8"`
}

// UpdateUserInput carries the optional fields of a partial update. An empty
// field means "leave unchanged"; username is immutable and not part of the
// update surface.
type UpdateUserInput struct {
	FullName     string `json:"fullName" validate:"omitempty,max=256"`
	Email        string `json:"email" validate:"omitempty,email,max=256"`
	MobileNumber string `json:"mobileNumber" validate:"omitempty,max=16"`
	Language     string `json:"language" validate:"omitempty,max=16"`
	Culture      string `json:"culture" validate:"omitempty,max=16"`
}

// UserView is the response representation of a user. Credential fields are
// deliberately absent.
type UserView struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	MobileNumber string    `json:"mobileNumber"`
	Language     string    `json:"language"`
	Culture      string    `json:"culture"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserService orchestrates tenant-scoped user lookups, uniqueness checks and
// mutations against the repository and the password hasher.
type UserService struct {
	users  domain.UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(users domain.UserRepository, hasher PasswordHasher, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserService{
		users:  users,
		hasher: hasher,
		logger: logger,
	}
}

// Get returns the user identified by (id, tenantID).
func (s *UserService) Get(ctx context.Context, id, tenantID string) (*UserView, error) {
	user, err := s.users.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	return viewOf(user), nil
}

// List returns all users owned by the tenant in insertion order.
func (s *UserService) List(ctx context.Context, tenantID string) ([]*UserView, error) {
	users, err := s.users.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	views := make([]*UserView, 0, len(users))
	for _, user := range users {
		views = append(views, viewOf(user))
	}
	return views, nil
}

// Create validates the input, enforces per-tenant uniqueness of username and
// email (username checked first), hashes the password and persists the row.
// The storage-level unique indexes back the pre-checks, so a concurrent
// duplicate insert racing past the checks still surfaces as DuplicateError.
func (s *UserService) Create(ctx context.Context, in CreateUserInput, tenantID string) (*UserView, error) {
	if err := validateCreate(in); err != nil {
		metrics.ObserveUserOperation("create", "validation_failed")
		return nil, err
	}

	exists, err := s.users.UsernameExists(ctx, tenantID, in.Username)
	if err != nil {
		metrics.ObserveUserOperation("create", "error")
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		metrics.ObserveUserOperation("create", "duplicate")
		return nil, &domain.DuplicateError{Field: "username"}
	}

	exists, err = s.users.EmailExists(ctx, tenantID, in.Email, "")
	if err != nil {
		metrics.ObserveUserOperation("create", "error")
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		metrics.ObserveUserOperation("create", "duplicate")
		return nil, &domain.DuplicateError{Field: "email"}
	}

	hash, salt, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		metrics.ObserveUserOperation("create", "error")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		MobileNumber: in.MobileNumber,
		Language:     in.Language,
		Culture:      in.Culture,
		PasswordHash: hash,
		PasswordSalt: salt,
		TenantID:     tenantID,
	}

	if err := s.users.Create(ctx, user); err != nil {
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			// Lost the race between check and insert; the unique index wins.
			metrics.ObserveUserOperation("create", "duplicate")
			return nil, dup
		}
		metrics.ObserveUserOperation("create", "error")
		return nil, err
	}

	s.logger.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", tenantID),
	)
	metrics.ObserveUserOperation("create", "success")

	return viewOf(user), nil
}

// Update applies the non-empty fields of the input to an existing user.
// A changed email re-runs the per-tenant uniqueness check excluding the row
// being updated. updated_at advances on every successful call, even when the
// applied fields are a no-op.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput, tenantID string) (*UserView, error) {
	if err := validateUpdate(in); err != nil {
		metrics.ObserveUserOperation("update", "validation_failed")
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.ObserveUserOperation("update", "not_found")
		} else {
			metrics.ObserveUserOperation("update", "error")
		}
		return nil, err
	}

	if in.FullName != "" {
		user.FullName = in.FullName
	}

	if in.Email != "" {
		exists, err := s.users.EmailExists(ctx, tenantID, in.Email, id)
		if err != nil {
			metrics.ObserveUserOperation("update", "error")
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			metrics.ObserveUserOperation("update", "duplicate")
			return nil, &domain.DuplicateError{Field: "email"}
		}
		user.Email = in.Email
	}

	if in.MobileNumber != "" {
		user.MobileNumber = in.MobileNumber
	}

	if in.Language != "" {
		user.Language = in.Language
	}

	if in.Culture != "" {
		user.Culture = in.Culture
	}

	if err := s.users.Update(ctx, user); err != nil {
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			metrics.ObserveUserOperation("update", "duplicate")
			return nil, dup
		}
		metrics.ObserveUserOperation("update", "error")
		return nil, err
	}

	s.logger.Info("user updated",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", tenantID),
	)
	metrics.ObserveUserOperation("update", "success")

	return viewOf(user), nil
}

// Delete hard-deletes the user identified by (id, tenantID). Deleting an
// already-deleted user reports not-found.
func (s *UserService) Delete(ctx context.Context, id, tenantID string) error {
	if err := s.users.Delete(ctx, id, tenantID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.ObserveUserOperation("delete", "not_found")
		} else {
			metrics.ObserveUserOperation("delete", "error")
		}
		return err
	}

	s.logger.Info("user deleted",
		slog.String("user_id", id),
		slog.String("tenant_id", tenantID),
	)
	metrics.ObserveUserOperation("delete", "success")

	return nil
}

// ValidatePassword checks a candidate password against the stored digest of
// the user identified by (id, tenantID). A wrong password is a normal false
// result, not an error.
func (s *UserService) ValidatePassword(ctx context.Context, id, password, tenantID string) (bool, error) {
	user, err := s.users.GetByID(ctx, id, tenantID)
	if err != nil {
		return false, err
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		s.logger.Error("failed to verify password",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("failed to verify password: %w", err)
	}

	if valid {
		metrics.ObservePasswordValidation("valid")
	} else {
		metrics.ObservePasswordValidation("invalid")
	}

	return valid, nil
}

func viewOf(user *domain.User) *UserView {
	return &UserView{
		ID:           user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Email:        user.Email,
		MobileNumber: user.MobileNumber,
		Language:     user.Language,
		Culture:      user.Culture,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
