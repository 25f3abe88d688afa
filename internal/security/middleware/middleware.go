package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/security/audit"
	"github.com/yourorg/userhub/internal/security/auth"
)

type TenantContextKey struct{}

// publicPath reports whether the path is served without tenant credentials.
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

// RequestIDMiddleware assigns every request an ID, echoed in the
// X-Request-ID response header and available to downstream log calls.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// APIKeyMiddleware authenticates requests by the X-API-Key header and stores
// the owning tenant's ID in the request context. Health and metrics endpoints
// are exempt.
func APIKeyMiddleware(resolver *auth.Resolver, auditLog *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				http.Error(w, `{"error":"API key is missing"}`, http.StatusUnauthorized)
				return
			}

			tenant, err := resolver.Resolve(r.Context(), apiKey)
			if err != nil {
				if errors.Is(err, domain.ErrTenantNotFound) {
					auditLog.LogDenied(r.Context(), "", "invalid API key")
					http.Error(w, `{"error":"invalid API key"}`, http.StatusUnauthorized)
					return
				}
				log.Error("api key resolution failed", slog.String("error", err.Error()))
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), TenantContextKey{}, tenant.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetTenantFromContext(ctx context.Context) string {
	if t := ctx.Value(TenantContextKey{}); t != nil {
		return t.(string)
	}
	return ""
}
