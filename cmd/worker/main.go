package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/duriyam/operate/internal/app"
	jobmetrics "github.com/duriyam/operate/internal/jobs"
	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	adapters, err := app.OpenAdapters(ctx, cfg, rbac.DefaultCatalog, logger)
	if err != nil {
		logger.Error("open backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer adapters.Close()

	metrics := jobmetrics.NewMetrics(nil)
	auditJob := jobs.NewRoleChangeAuditJob(adapters.Audit, logger, metrics)
	driftJob := &jobs.CatalogDriftJob{Source: adapters.Roles, Catalog: rbac.DefaultCatalog, Logger: logger, Metrics: metrics}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Queue(),
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRoleChanged, Handler: auditJob.Handle},
			{Type: jobs.TaskCatalogDrift, Handler: driftJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DriftSchedule, Task: jobs.NewCatalogDriftTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
