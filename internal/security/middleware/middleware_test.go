package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/reliability/circuitbreaker"
	"github.com/yourorg/userhub/internal/security/audit"
	"github.com/yourorg/userhub/internal/security/auth"
)

type fakeTenantRepo struct {
	byKey map[string]*domain.Tenant
}

func (f *fakeTenantRepo) Create(_ context.Context, _ *domain.Tenant) error { return nil }

func (f *fakeTenantRepo) GetByID(_ context.Context, _ string) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

func (f *fakeTenantRepo) GetByAPIKey(_ context.Context, apiKey string) (*domain.Tenant, error) {
	if t, ok := f.byKey[apiKey]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (f *fakeTenantRepo) Deactivate(_ context.Context, _ string) error { return nil }

func (f *fakeTenantRepo) List(_ context.Context) ([]*domain.Tenant, error) { return nil, nil }

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthHandler(next http.Handler) http.Handler {
	repo := &fakeTenantRepo{byKey: map[string]*domain.Tenant{
		"good-key": {ID: "t-1", Name: "acme", IsActive: true},
	}}
	breaker := circuitbreaker.NewCircuitBreaker(3, 1, time.Minute)
	resolver := auth.NewResolver(repo, nil, breaker, time.Minute, noopLogger())
	return APIKeyMiddleware(resolver, audit.NewLogger(noopLogger()), noopLogger())(next)
}

func TestAPIKeyMiddleware(t *testing.T) {
	var seenTenant string
	handler := newAuthHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTenant = GetTenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Missing key
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "API key is missing")

	// Unknown key
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-API-Key", "bad-key")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid API key")

	// Valid key resolves the tenant into the context
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-API-Key", "good-key")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t-1", seenTenant)
}

func TestAPIKeyMiddlewareSkipsPublicPaths(t *testing.T) {
	handler := newAuthHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A caller-supplied ID is preserved.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-Request-ID", "req-123")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestValidateJSONContentType(t *testing.T) {
	handler := ValidateJSONContentType(noopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
