package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/reliability/circuitbreaker"
)

type fakeTenantRepo struct {
	byKey map[string]*domain.Tenant
	calls int
}

func (f *fakeTenantRepo) Create(_ context.Context, _ *domain.Tenant) error { return nil }

func (f *fakeTenantRepo) GetByID(_ context.Context, _ string) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

func (f *fakeTenantRepo) GetByAPIKey(_ context.Context, apiKey string) (*domain.Tenant, error) {
	f.calls++
	if t, ok := f.byKey[apiKey]; ok && t.IsActive {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (f *fakeTenantRepo) Deactivate(_ context.Context, _ string) error { return nil }

func (f *fakeTenantRepo) List(_ context.Context) ([]*domain.Tenant, error) { return nil, nil }

type fakeKeyCache struct {
	entries map[string]string
	fail    bool
	gets    int
}

func newFakeKeyCache() *fakeKeyCache {
	return &fakeKeyCache{entries: map[string]string{}}
}

func (f *fakeKeyCache) Get(_ context.Context, key string) (string, error) {
	f.gets++
	if f.fail {
		return "", errors.New("connection refused")
	}
	if v, ok := f.entries[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (f *fakeKeyCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.fail {
		return errors.New("connection refused")
	}
	f.entries[key], _ = value.(string)
	return nil
}

func activeTenant() *domain.Tenant {
	return &domain.Tenant{ID: "t-1", Name: "acme", APIKey: "key-abc", IsActive: true}
}

func newBreaker() *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker(3, 1, time.Minute)
}

func TestResolveFromDatabaseThenCache(t *testing.T) {
	repo := &fakeTenantRepo{byKey: map[string]*domain.Tenant{"key-abc": activeTenant()}}
	remote := newFakeKeyCache()
	r := NewResolver(repo, remote, newBreaker(), time.Minute, nil)
	ctx := context.Background()

	tenant, err := r.Resolve(ctx, "key-abc")
	require.NoError(t, err)
	assert.Equal(t, "t-1", tenant.ID)
	assert.Equal(t, 1, repo.calls)

	// Second resolve is answered by the cache.
	tenant, err = r.Resolve(ctx, "key-abc")
	require.NoError(t, err)
	assert.Equal(t, "t-1", tenant.ID)
	assert.Equal(t, 1, repo.calls)
}

func TestResolveUnknownKey(t *testing.T) {
	repo := &fakeTenantRepo{byKey: map[string]*domain.Tenant{}}
	r := NewResolver(repo, newFakeKeyCache(), newBreaker(), time.Minute, nil)

	_, err := r.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestResolveDeactivatedTenant(t *testing.T) {
	tenant := activeTenant()
	tenant.IsActive = false
	repo := &fakeTenantRepo{byKey: map[string]*domain.Tenant{"key-abc": tenant}}
	r := NewResolver(repo, newFakeKeyCache(), newBreaker(), time.Minute, nil)

	_, err := r.Resolve(context.Background(), "key-abc")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestResolveCacheFailureFallsThroughToDatabase(t *testing.T) {
	repo := &fakeTenantRepo{byKey: map[string]*domain.Tenant{"key-abc": activeTenant()}}
	remote := newFakeKeyCache()
	remote.fail = true
	r := NewResolver(repo, remote, newBreaker(), time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tenant, err := r.Resolve(ctx, "key-abc")
		require.NoError(t, err)
		assert.Equal(t, "t-1", tenant.ID)
	}

	// Every resolve reached the database despite the failing cache.
	assert.Equal(t, 5, repo.calls)

	// The breaker tripped after repeated failures, so later resolves stop
	// touching the cache entirely.
	assert.Less(t, remote.gets, 5)
}

func TestResolveLocalCacheWhenNoRemote(t *testing.T) {
	repo := &fakeTenantRepo{byKey: map[string]*domain.Tenant{"key-abc": activeTenant()}}
	r := NewResolver(repo, nil, newBreaker(), time.Minute, nil)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "key-abc")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "key-abc")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestCacheKeyHidesRawKey(t *testing.T) {
	key := CacheKey("key-abc")
	assert.Contains(t, key, KeyPrefix)
	assert.NotContains(t, key, "key-abc")
	assert.Equal(t, CacheKey("key-abc"), key)
	assert.NotEqual(t, CacheKey("key-xyz"), key)
}
