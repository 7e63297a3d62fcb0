package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/salsation/eventfin/internal/app"
	"github.com/salsation/eventfin/internal/expenses"
	jobmetrics "github.com/salsation/eventfin/internal/jobs"
	"github.com/salsation/eventfin/internal/platform/cache"
	"github.com/salsation/eventfin/internal/platform/db"
	"github.com/salsation/eventfin/internal/settlement"
	"github.com/salsation/eventfin/internal/splits"
	"github.com/salsation/eventfin/internal/warehouse"
	"github.com/salsation/eventfin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(".env")
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	wh, err := warehouse.Open(ctx, cfg.WarehouseDSN)
	if err != nil {
		logger.Error("connect warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := wh.Close(); err != nil {
			logger.Warn("warehouse close", slog.Any("error", err))
		}
	}()

	// The worker only exists to fill and invalidate the cache, so Redis is mandatory here.
	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	reportCache := settlement.NewCache(redisClient, cfg.ReportCacheTTL)
	settlementMetrics, err := settlement.NewMetrics(nil)
	if err != nil {
		logger.Error("register settlement metrics", slog.Any("error", err))
		os.Exit(1)
	}
	reports := settlement.NewService(settlement.Sources{
		Events:    warehouse.NewStore(wh),
		Reference: settlement.NewPostgresReference(pool),
		Expenses:  expenses.NewService(expenses.NewRepository(pool), logger, nil),
		Splits:    splits.NewService(splits.NewRepository(pool), logger, nil),
	}, reportCache, logger, settlement.WithMetrics(settlementMetrics))

	metrics := jobmetrics.NewMetrics(nil)
	warmupJob := jobs.NewWarmupJob(reports, logger, metrics)
	bumpJob := jobs.NewReferenceBumpJob(reportCache, logger, metrics)

	var cron []jobs.CronRegistration
	if cfg.ReferenceBumpCron != "" {
		bumpTask, err := jobs.NewReferenceBumpTask("scheduled")
		if err != nil {
			logger.Error("build reference bump task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ReferenceBumpCron, Task: bumpTask})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSettlementWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskReferenceBump, Handler: bumpJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("queue", jobs.QueueSettlement), slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
