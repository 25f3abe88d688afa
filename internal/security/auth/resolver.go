package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/observability/metrics"
	"github.com/yourorg/userhub/internal/reliability/circuitbreaker"
	"github.com/yourorg/userhub/pkg/cache"
)

// KeyPrefix namespaces cached API key entries so the revocation sweep can
// enumerate them without touching unrelated keys.
const KeyPrefix = "apikey:"

// KeyCache is the remote cache surface the resolver needs. Satisfied by the
// redis infrastructure client.
type KeyCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// cachedTenant is the serialized form stored in the key cache. The raw API
// key is never stored; entries are addressed by its digest.
type cachedTenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolver maps a raw API key to its active tenant. Lookups try the remote
// cache behind a circuit breaker, fall back to a local TTL cache when no
// remote cache is configured, and hit the database last. Misses are not
// cached, so a freshly provisioned key works immediately.
type Resolver struct {
	tenants domain.TenantRepository
	remote  KeyCache
	local   *cache.Cache
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	logger  *slog.Logger
}

// NewResolver creates a resolver. remote may be nil, in which case the local
// in-process cache serves as the only cache tier.
func NewResolver(tenants domain.TenantRepository, remote KeyCache, breaker *circuitbreaker.CircuitBreaker, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		tenants: tenants,
		remote:  remote,
		local:   cache.New(),
		breaker: breaker,
		ttl:     ttl,
		logger:  logger,
	}
}

// CacheKey derives the cache key for a raw API key. Only the digest of the
// key ever reaches the cache.
func CacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// Resolve returns the active tenant owning apiKey, or
// domain.ErrTenantNotFound when the key is unknown or the tenant has been
// deactivated.
func (r *Resolver) Resolve(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	key := CacheKey(apiKey)

	if tenant, ok := r.fromCache(ctx, key); ok {
		return tenant, nil
	}

	tenant, err := r.tenants.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			metrics.ObserveKeyLookup("database", "miss")
			return nil, err
		}
		metrics.ObserveKeyLookup("database", "error")
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}
	metrics.ObserveKeyLookup("database", "hit")

	r.store(ctx, key, tenant)
	return tenant, nil
}

func (r *Resolver) fromCache(ctx context.Context, key string) (*domain.Tenant, bool) {
	if r.remote == nil {
		if v, ok := r.local.Get(key); ok {
			if entry, ok := v.(cachedTenant); ok {
				metrics.ObserveKeyLookup("local", "hit")
				return &domain.Tenant{ID: entry.ID, Name: entry.Name, IsActive: true}, true
			}
		}
		metrics.ObserveKeyLookup("local", "miss")
		return nil, false
	}

	if !r.breaker.AllowRequest() {
		metrics.ObserveKeyLookup("redis", "skipped")
		return nil, false
	}

	raw, err := r.remote.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			r.breaker.RecordSuccess()
			metrics.ObserveKeyLookup("redis", "miss")
			return nil, false
		}
		r.breaker.RecordFailure()
		metrics.ObserveKeyLookup("redis", "error")
		r.logger.Warn("api key cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	r.breaker.RecordSuccess()

	var entry cachedTenant
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		metrics.ObserveKeyLookup("redis", "error")
		r.logger.Warn("api key cache entry corrupt", slog.String("key", key))
		return nil, false
	}

	metrics.ObserveKeyLookup("redis", "hit")
	return &domain.Tenant{ID: entry.ID, Name: entry.Name, IsActive: true}, true
}

func (r *Resolver) store(ctx context.Context, key string, tenant *domain.Tenant) {
	entry := cachedTenant{ID: tenant.ID, Name: tenant.Name}

	if r.remote == nil {
		r.local.Set(key, entry, r.ttl)
		return
	}

	if !r.breaker.AllowRequest() {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.remote.Set(ctx, key, string(payload), r.ttl); err != nil {
		r.breaker.RecordFailure()
		r.logger.Warn("api key cache write failed", slog.String("error", err.Error()))
		return
	}
	r.breaker.RecordSuccess()
}
