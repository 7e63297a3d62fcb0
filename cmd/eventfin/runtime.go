package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/salsation/eventfin/internal/app"
	"github.com/salsation/eventfin/internal/expenses"
	"github.com/salsation/eventfin/internal/platform/cache"
	"github.com/salsation/eventfin/internal/platform/db"
	"github.com/salsation/eventfin/internal/settlement"
	"github.com/salsation/eventfin/internal/splits"
	"github.com/salsation/eventfin/internal/warehouse"
)

// runtime holds the connections and services shared by the server and the subcommands.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger

	pool      *pgxpool.Pool
	warehouse *sql.DB
	redis     *redis.Client

	events      *warehouse.Store
	reference   *settlement.PostgresReference
	reportCache *settlement.Cache
	expenses    *expenses.Service
	splits      *splits.Service
	reports     *settlement.Service
}

// openRuntime connects PostgreSQL, the warehouse and Redis. Redis is optional: when
// unreachable reports are computed on every request.
func openRuntime(ctx context.Context, cfg *app.Config, logger *slog.Logger, reg prometheus.Registerer) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	rt.pool = pool

	wh, err := warehouse.Open(ctx, cfg.WarehouseDSN)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.warehouse = wh

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		rt.redis = redisClient
	}

	metrics, err := settlement.NewMetrics(reg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.events = warehouse.NewStore(wh)
	rt.reference = settlement.NewPostgresReference(pool)
	rt.reportCache = settlement.NewCache(rt.redis, cfg.ReportCacheTTL)
	rt.expenses = expenses.NewService(expenses.NewRepository(pool), logger, rt.reportCache)
	rt.splits = splits.NewService(splits.NewRepository(pool), logger, rt.reportCache, splitOptions(cfg, pool)...)
	rt.reports = settlement.NewService(settlement.Sources{
		Events:    rt.events,
		Reference: rt.reference,
		Expenses:  rt.expenses,
		Splits:    rt.splits,
	}, rt.reportCache, logger, settlement.WithMetrics(metrics))
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if rt.warehouse != nil {
		if err := rt.warehouse.Close(); err != nil {
			rt.logger.Warn("warehouse close", slog.Any("error", err))
		}
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}

// splitOptions enables per-event locking of split saves when configured.
func splitOptions(cfg *app.Config, pool db.TxBeginner) []splits.Option {
	if !cfg.SplitSaveLock {
		return nil
	}
	return []splits.Option{splits.WithTransactor(splits.NewLockingTransactor(pool))}
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
}
