package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, tenantID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant_id", tenantID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogCreated(ctx context.Context, tenantID, userID, status string) {
	al.LogAction(ctx, tenantID, "create", "user", userID, status, "")
}

func (al *Logger) LogUpdated(ctx context.Context, tenantID, userID, status string) {
	al.LogAction(ctx, tenantID, "update", "user", userID, status, "")
}

func (al *Logger) LogDeleted(ctx context.Context, tenantID, userID, status string) {
	al.LogAction(ctx, tenantID, "delete", "user", userID, status, "")
}

// LogPasswordCheck records that a verification happened, never its inputs.
func (al *Logger) LogPasswordCheck(ctx context.Context, tenantID, userID, status string) {
	al.LogAction(ctx, tenantID, "validate_password", "user", userID, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, tenantID, reason string) {
	al.LogAction(ctx, tenantID, "access_denied", "api", "", "denied", reason)
}
