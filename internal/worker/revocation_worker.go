package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/observability/metrics"
	"github.com/yourorg/userhub/internal/security/auth"
)

// KeyStore is the cache surface the revocation sweep needs. Satisfied by the
// redis infrastructure client.
type KeyStore interface {
	Keys(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// RevocationWorker periodically prunes cached API key entries whose tenant
// has been deactivated or removed. Cache TTLs bound staleness on their own;
// the sweep tightens the window for explicit revocations.
type RevocationWorker struct {
	store    KeyStore
	tenants  domain.TenantRepository
	logger   *slog.Logger
	interval time.Duration
}

// NewRevocationWorker creates a new revocation worker
func NewRevocationWorker(store KeyStore, tenants domain.TenantRepository, logger *slog.Logger, interval time.Duration) *RevocationWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &RevocationWorker{
		store:    store,
		tenants:  tenants,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the sweep loop and blocks until ctx is cancelled.
func (w *RevocationWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("revocation worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("revocation worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep walks all cached API key entries and drops those whose tenant is no
// longer active.
func (w *RevocationWorker) Sweep(ctx context.Context) {
	keys, err := w.store.Keys(ctx, auth.KeyPrefix+"*")
	if err != nil {
		w.logger.Error("failed to list cached api keys", slog.String("error", err.Error()))
		metrics.ObserveRevocation("error")
		return
	}

	for _, key := range keys {
		w.sweepKey(ctx, key)
	}
}

func (w *RevocationWorker) sweepKey(ctx context.Context, key string) {
	raw, err := w.store.Get(ctx, key)
	if err != nil {
		// Expired between Keys and Get; nothing to do.
		return
	}

	var entry struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.ID == "" {
		w.logger.Warn("dropping corrupt api key cache entry", slog.String("key", key))
		w.dropKey(ctx, key)
		return
	}

	tenant, err := w.tenants.GetByID(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			w.dropKey(ctx, key)
			return
		}
		w.logger.Error("failed to check tenant during sweep",
			slog.String("tenant_id", entry.ID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveRevocation("error")
		return
	}

	if !tenant.IsActive {
		w.logger.Info("revoking cached api key for deactivated tenant",
			slog.String("tenant_id", tenant.ID),
		)
		w.dropKey(ctx, key)
	}
}

func (w *RevocationWorker) dropKey(ctx context.Context, key string) {
	if err := w.store.Delete(ctx, key); err != nil {
		w.logger.Error("failed to delete cached api key", slog.String("error", err.Error()))
		metrics.ObserveRevocation("error")
		return
	}
	metrics.ObserveRevocation("revoked")
}
