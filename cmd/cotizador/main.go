package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/bookexpress/cotizador/internal/aggregate"
	"github.com/bookexpress/cotizador/internal/app"
	"github.com/bookexpress/cotizador/internal/catalog"
	"github.com/bookexpress/cotizador/internal/export"
	"github.com/bookexpress/cotizador/internal/masterdata"
	"github.com/bookexpress/cotizador/internal/observability"
	"github.com/bookexpress/cotizador/internal/platform/cache"
	"github.com/bookexpress/cotizador/internal/platform/db"
	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/sales"
	"github.com/bookexpress/cotizador/internal/shared"
	"github.com/bookexpress/cotizador/jobs"
	"github.com/bookexpress/cotizador/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := db.Migrate(dbpool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
		return
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(dbpool); err != nil {
			logger.Error("migrate on start", slog.Any("error", err))
			os.Exit(1)
		}
	}

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

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	locker := shared.NewLocker(redisClient)

	catalogService := catalog.NewService(
		catalog.NewRepository(dbpool),
		cache.NewJSON(redisClient, "catalog", cfg.CatalogCacheTTL),
		locker,
		logger,
	)

	masterdataService := masterdata.NewService(masterdata.NewRepository(dbpool), nil)

	salesRepo := sales.NewRepository(dbpool)
	engine := aggregate.NewEngine(aggregate.NewMetrics(metrics.Registerer()), logger)
	salesService := sales.NewService(salesRepo, catalogService, masterdataService, engine, auditLogger, logger)

	exportService := export.NewService(salesRepo, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		PricingHandler:    pricing.NewHandler(catalogService),
		CatalogHandler:    catalog.NewHandler(logger, catalogService, jobClient, cfg.ImportDir),
		MasterDataHandler: masterdata.NewHandler(logger, masterdataService),
		SalesHandler:      sales.NewHandler(logger, salesService, idempotencyStore),
		ExportHandler:     export.NewHandler(exportService, logger),
		DocumentHandler:   report.NewHandler(salesService, logger),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
