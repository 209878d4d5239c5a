package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/bookexpress/cotizador/internal/app"
	"github.com/bookexpress/cotizador/internal/catalog"
	"github.com/bookexpress/cotizador/internal/export"
	jobmetrics "github.com/bookexpress/cotizador/internal/jobs"
	"github.com/bookexpress/cotizador/internal/platform/cache"
	"github.com/bookexpress/cotizador/internal/platform/db"
	"github.com/bookexpress/cotizador/internal/sales"
	"github.com/bookexpress/cotizador/internal/shared"
	"github.com/bookexpress/cotizador/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	catalogService := catalog.NewService(
		catalog.NewRepository(pool),
		cache.NewJSON(redisClient, "catalog", cfg.CatalogCacheTTL),
		shared.NewLocker(redisClient),
		logger,
	)
	exportService := export.NewService(sales.NewRepository(pool), logger)

	importJob := jobs.NewCatalogImportJob(catalogService, logger, metrics)
	exportJob := jobs.NewReportExportJob(exportService, cfg.ExportDir, logger, metrics)

	var cronJobs []jobs.CronRegistration
	if cfg.ExportCron != "" {
		cronJobs = append(cronJobs, jobs.CronRegistration{
			Spec:    cfg.ExportCron,
			Task:    jobs.NewReportExportTask(),
			Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogImport, Handler: importJob.Handle},
			{Type: jobs.TaskReportExport, Handler: exportJob.Handle},
		},
		Cron: cronJobs,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
