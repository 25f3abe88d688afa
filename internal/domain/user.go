package domain

import (
	"context"
	"time"
)

// User represents an identity record owned by a single tenant.
// PasswordHash and PasswordSalt are internal to the hashing subsystem and
// must never appear in API responses or log output.
type User struct {
	ID           string // UUID
	Username     string // Unique per tenant, immutable after creation
	FullName     string
	Email        string // Unique per tenant
	MobileNumber string
	Language     string
	Culture      string
	PasswordHash string // Base64 PBKDF2 digest
	PasswordSalt string // Base64 random salt
	TenantID     string // UUID of the owning tenant
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines tenant-scoped data access for users. Every lookup
// and mutation is keyed by (id, tenant_id) so rows owned by another tenant
// behave exactly like missing rows.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id, tenantID string) (*User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*User, error)
	UsernameExists(ctx context.Context, tenantID, username string) (bool, error)
	// EmailExists reports whether another user in the tenant already owns the
	// email. excludeID skips the row being updated; empty means exclude none.
	EmailExists(ctx context.Context, tenantID, email, excludeID string) (bool, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id, tenantID string) error
}

// Tenant is an API client owning an isolated namespace of users. Tenants are
// provisioned out-of-band; request handling only reads (id, is_active).
type Tenant struct {
	ID        string // UUID
	Name      string
	APIKey    string // Opaque credential presented in X-API-Key
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
}

// TenantRepository defines data access for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Tenant, error)
}
