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

	"github.com/hibiken/asynq"

	"github.com/duriyam/operate/internal/admin"
	"github.com/duriyam/operate/internal/app"
	"github.com/duriyam/operate/internal/auth"
	"github.com/duriyam/operate/internal/branches"
	"github.com/duriyam/operate/internal/observability"
	"github.com/duriyam/operate/internal/platform/cache"
	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/internal/shared"
	"github.com/duriyam/operate/internal/viewgate"
	"github.com/duriyam/operate/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := cfg.ValidateBackend(); err != nil {
		logger.Error("backend not configured, serving placeholder", slog.Any("error", err))
		serve(ctx, stop, cfg, logger, app.NewPlaceholderRouter(logger, err))
		return
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalog := rbac.DefaultCatalog
	adapters, err := app.OpenAdapters(ctx, cfg, catalog, logger)
	if err != nil {
		if errors.Is(err, shared.ErrConfiguration) {
			serve(ctx, stop, cfg, logger, app.NewPlaceholderRouter(logger, err))
			return
		}
		logger.Error("open backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer adapters.Close()

	sessionManager := cfg.SessionManager(redisClient)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	checkCache := rbac.NewCheckCache(redisClient, cfg.AuthzCacheTTL)
	resolver := rbac.NewResolver(adapters.Roles, logger, metrics)
	evaluator := rbac.NewEvaluator(adapters.Roles, checkCache, logger, metrics)
	rbacMiddleware := rbac.Middleware{Resolver: resolver, Evaluator: evaluator, Logger: logger}

	redisOpts := cfg.Queue()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	workflow := admin.NewWorkflow(adapters.Roles, catalog, admin.Options{
		Invalidator: evaluator,
		Notifier:    jobClient,
		Logger:      logger,
	})
	authService := auth.NewService(adapters.Identity)
	branchService := branches.NewService(adapters.Branches, branches.NewRedisPreferences(redisClient), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        auth.NewHandler(logger, authService, resolver, sessionManager, csrfManager),
		AdminHandler:       admin.NewHandler(logger, workflow, rbacMiddleware),
		NavigationHandler:  viewgate.NewHandler(logger, viewgate.NewLoader(resolver, evaluator)),
		BranchesHandler:    branches.NewHandler(logger, branchService),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, catalog, adapters.Roles, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	serve(ctx, stop, cfg, logger, router)
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger, handler http.Handler) {
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
