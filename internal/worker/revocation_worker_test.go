package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/security/auth"
)

type fakeKeyStore struct {
	entries map[string]string
}

func (f *fakeKeyStore) Keys(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k := range f.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKeyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.entries[key]; ok {
		return v, nil
	}
	return "", errors.New("key not found")
}

func (f *fakeKeyStore) Delete(_ context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

type fakeTenantRepo struct {
	byID map[string]*domain.Tenant
}

func (f *fakeTenantRepo) Create(_ context.Context, _ *domain.Tenant) error { return nil }

func (f *fakeTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (f *fakeTenantRepo) GetByAPIKey(_ context.Context, _ string) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

func (f *fakeTenantRepo) Deactivate(_ context.Context, _ string) error { return nil }

func (f *fakeTenantRepo) List(_ context.Context) ([]*domain.Tenant, error) { return nil, nil }

func TestSweepDropsDeactivatedTenantEntries(t *testing.T) {
	store := &fakeKeyStore{entries: map[string]string{
		auth.KeyPrefix + "aaa": `{"id":"t-active","name":"acme"}`,
		auth.KeyPrefix + "bbb": `{"id":"t-gone","name":"stale"}`,
		auth.KeyPrefix + "ccc": `{"id":"t-inactive","name":"closed"}`,
		"other:key":            `irrelevant`,
	}}
	repo := &fakeTenantRepo{byID: map[string]*domain.Tenant{
		"t-active":   {ID: "t-active", IsActive: true},
		"t-inactive": {ID: "t-inactive", IsActive: false},
	}}

	w := NewRevocationWorker(store, repo, nil, time.Minute)
	w.Sweep(context.Background())

	assert.Contains(t, store.entries, auth.KeyPrefix+"aaa")
	assert.NotContains(t, store.entries, auth.KeyPrefix+"bbb")
	assert.NotContains(t, store.entries, auth.KeyPrefix+"ccc")
	assert.Contains(t, store.entries, "other:key")
}

func TestSweepDropsCorruptEntries(t *testing.T) {
	store := &fakeKeyStore{entries: map[string]string{
		auth.KeyPrefix + "bad": `not json`,
	}}
	repo := &fakeTenantRepo{byID: map[string]*domain.Tenant{}}

	w := NewRevocationWorker(store, repo, nil, time.Minute)
	w.Sweep(context.Background())

	assert.Empty(t, store.entries)
}
