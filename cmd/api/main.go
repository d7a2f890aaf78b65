package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chorely/chorely/internal/auth"
	"github.com/chorely/chorely/internal/background"
	"github.com/chorely/chorely/internal/config"
	"github.com/chorely/chorely/internal/handlers"
	"github.com/chorely/chorely/internal/metrics"
	"github.com/chorely/chorely/internal/observability"
	"github.com/chorely/chorely/internal/routes"
	"github.com/chorely/chorely/internal/services"
	"github.com/chorely/chorely/internal/store"
	pkghttp "github.com/chorely/chorely/pkg/http"
	pkglogger "github.com/chorely/chorely/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store", cfg.Server.StoreDriver),
	)

	if cfg.Sentry.DSN != "" {
		if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Server.Env); err != nil {
			logger.Error("failed to initialize sentry", slog.Any("error", err))
		} else {
			defer observability.FlushSentry()
		}
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		observability.FlushSentry()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	m := metrics.New()
	auditLogger := pkglogger.NewAuditLogger(logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	// Login limiter is process-local and shared by every request
	limiter := services.NewRateLimitService(services.RateLimitConfig{
		MaxAttempts: cfg.Auth.LoginRateLimitMax,
		Window:      cfg.Auth.LoginRateLimitWindow,
	}, logger)

	// Initialize services
	refreshService := services.NewRefreshTokenService(st.Users, tokenManager, logger)
	authService := services.NewAuthService(st.Users, refreshService, limiter, tokenManager, logger, auditLogger, m)
	taskService := services.NewTaskService(st.Tasks, logger, auditLogger)

	router := routes.NewRouter(
		routes.Options{
			Env:                cfg.Server.Env,
			AllowedOrigins:     cfg.Server.AllowedOrigins,
			IPConfig:           ipConfig,
			AuthRouteRateLimit: cfg.Auth.AuthRouteRateLimit,
		},
		routes.Handlers{
			Auth:   handlers.NewAuthHandler(authService, ipConfig, logger),
			Tasks:  handlers.NewTaskHandler(taskService, logger),
			Health: handlers.NewHealthHandler(st, logger),
		},
		tokenManager,
		st.Users,
		m,
		logger,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start limiter prune loop
	cleanupManager := background.NewCleanupManager(limiter, m, logger, cfg.Auth.LimiterPruneInterval)
	go cleanupManager.Start(ctx)
	defer cleanupManager.Stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newLogger builds the JSON logger at LOG_LEVEL; unknown levels fall back to info
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
