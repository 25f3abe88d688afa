package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/userhub/internal/handler"
	"github.com/yourorg/userhub/internal/infrastructure/logger"
	"github.com/yourorg/userhub/internal/infrastructure/redis"
	"github.com/yourorg/userhub/internal/observability/metrics"
	"github.com/yourorg/userhub/internal/observability/tracing"
	"github.com/yourorg/userhub/internal/reliability/circuitbreaker"
	"github.com/yourorg/userhub/internal/reliability/retry"
	"github.com/yourorg/userhub/internal/repository"
	"github.com/yourorg/userhub/internal/security/audit"
	"github.com/yourorg/userhub/internal/security/auth"
	"github.com/yourorg/userhub/internal/security/middleware"
	"github.com/yourorg/userhub/internal/security/password"
	"github.com/yourorg/userhub/internal/service"
	"github.com/yourorg/userhub/internal/worker"
	"github.com/yourorg/userhub/pkg/config"
	"github.com/yourorg/userhub/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting userhub server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "userhub", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres and run migrations
	retryCfg := retry.DefaultConfig()
	pool, err := retry.Do(ctx, retryCfg, log, "connect database", func(ctx context.Context) (*database.ConnectionPool, error) {
		return database.NewConnectionPool(ctx, &database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}, log)
	})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool.GetDB()); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Connect to Redis when configured; without it the in-process cache
	// serves API key lookups.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = retry.Do(ctx, retryCfg, log, "connect redis", func(_ context.Context) (*redis.Client, error) {
			return redis.NewClient(cfg.RedisURL)
		})
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
	} else {
		log.Info("redis disabled, using in-process api key cache")
	}

	// 6. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	tenantRepo := repository.NewPostgresTenantRepository(pool.GetDB(), log)

	// 7. Initialize services
	userService := service.NewUserService(userRepo, password.NewHasher(), log)

	// 7a. Initialize security components
	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		log.Warn("api key cache breaker state changed",
			slog.Int("from", int(from)),
			slog.Int("to", int(to)),
		)
	})

	cacheTTL := time.Duration(cfg.APIKeyCacheTTLSeconds) * time.Second
	var keyCache auth.KeyCache
	if redisClient != nil {
		keyCache = redisClient
	}
	resolver := auth.NewResolver(tenantRepo, keyCache, breaker, cacheTTL, log)

	auditLogger := audit.NewLogger(log)

	// 8. Initialize handlers
	usersHandler := handler.NewUsersHandler(userService, auditLogger, log)

	var cachePinger handler.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}
	healthHandler := handler.NewHealthHandler(pool, cachePinger, log)

	// 9. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users", usersHandler.Create)
	mux.HandleFunc("GET /api/users", usersHandler.List)
	mux.HandleFunc("GET /api/users/{id}", usersHandler.Get)
	mux.HandleFunc("PUT /api/users/{id}", usersHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", usersHandler.Delete)
	mux.HandleFunc("POST /api/users/{id}/validate-password", usersHandler.ValidatePassword)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// Chain middleware: request ID -> metrics -> body limit -> content type ->
	// API key auth
	rootHandler := middleware.RequestIDMiddleware(
		metrics.HTTPMetricsMiddleware(
			middleware.LimitBodySize(cfg.MaxBodyBytes)(
				middleware.ValidateJSONContentType(log)(
					middleware.APIKeyMiddleware(resolver, auditLogger, log)(mux),
				),
			),
		),
	)
	traced := otelhttp.NewHandler(rootHandler, "userhub")

	// 10. Start revocation worker when the remote cache is in use
	if redisClient != nil {
		revocationWorker := worker.NewRevocationWorker(
			redisClient,
			tenantRepo,
			log,
			time.Duration(cfg.RevocationIntervalMinutes)*time.Minute,
		)
		go revocationWorker.Start(ctx)
	}

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      traced,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "api-key"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop revocation worker
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
