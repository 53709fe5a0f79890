// Package main is the entrypoint for the tenantcore API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/tenantcore/internal/api"
	"github.com/kiranshivaraju/tenantcore/internal/api/handler"
	mw "github.com/kiranshivaraju/tenantcore/internal/api/middleware"
	"github.com/kiranshivaraju/tenantcore/internal/api/response"
	"github.com/kiranshivaraju/tenantcore/internal/api/route"
	"github.com/kiranshivaraju/tenantcore/internal/auth"
	"github.com/kiranshivaraju/tenantcore/internal/cache"
	"github.com/kiranshivaraju/tenantcore/internal/config"
	"github.com/kiranshivaraju/tenantcore/internal/metrics"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/internal/tenant"
	"github.com/kiranshivaraju/tenantcore/internal/user"
)

const (
	shutdownTimeout = 30 * time.Second
	healthTimeout   = 3 * time.Second
)

func main() {
	slog.SetDefault(newLogger("info"))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("config loaded", "auth_provider", cfg.Auth.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create cache
	c, closeCache, err := newCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeCache()

	// 5. Create stores, services and the identity backend
	pgStore := store.NewPostgresStore(pool)
	m := metrics.New()

	backend, err := auth.NewBackend(cfg.Auth, pgStore, c)
	if err != nil {
		return fmt.Errorf("create auth backend: %w", err)
	}
	slog.Info("auth provider initialized", "provider", backend.Provider.Name())

	tenants := tenant.NewService(pgStore, c, cfg.Tenant.CacheTTL, m)
	users := user.NewService(user.NewRepository(store.NewUserTable(pool)))

	// 6. Build router with dependencies
	deps := api.Dependencies{
		Auth:          mw.NewAuth(backend.Verifier),
		AuthRateLimit: mw.NewRateLimit(c, "auth", cfg.Auth.RateLimitPerMin),
		Tenants:       tenants,
		Metrics:       m,
		TrustProxy:    cfg.Server.TrustProxy,

		HealthHandler: healthHandler(map[string]pinger{
			"database": pgStore,
			"cache":    c,
		}),
		AuthHandler:   handler.NewAuthHandler(auth.NewService(backend.Provider, m)),
		TenantHandler: handler.NewTenantHandler(tenants),
		Resources: [][]route.Route{
			user.NewHandler(users).Routes(),
		},
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

// newCache connects to Redis when configured and otherwise falls back to an
// in-process cache, which is only correct for a single instance.
func newCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, func(), error) {
	if cfg.URL == "" {
		slog.Warn("REDIS_URL not set, using in-process cache")
		return cache.NewMemoryCache(time.Hour), func() {}, nil
	}

	rc, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := rc.Ping(ctx); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")
	return rc, func() { rc.Close() }, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler pings every dependency concurrently.
func healthHandler(deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			checks = make(map[string]string, len(deps))
			g      errgroup.Group
		)
		for name, p := range deps {
			g.Go(func() error {
				status := "ok"
				if err := p.Ping(ctx); err != nil {
					slog.Warn("health check failed", "dependency", name, "error", err)
					status = "degraded"
				}
				mu.Lock()
				checks[name] = status
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		for _, status := range checks {
			if status != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
