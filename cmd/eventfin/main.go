package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/salsation/eventfin/internal/app"
	"github.com/salsation/eventfin/internal/observability"
	settlementhttp "github.com/salsation/eventfin/internal/settlement/http"
	"github.com/salsation/eventfin/jobs"
)

const usage = `usage: eventfin [command] [flags]

commands:
  serve               run the HTTP API (default)
  graceprice-check    list tiers of a Japan event without a grace price
  recompute           compute the reports of a list of events
  jobs                enqueue or inspect settlement jobs
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	if cmd == "serve" && app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	var code int
	switch cmd {
	case "serve":
		code = serve(ctx, stop, cfg, logger)
	case "graceprice-check":
		code = runGracePriceCheck(ctx, cfg, logger, args)
	case "recompute":
		code = runRecompute(ctx, cfg, logger, args)
	case "jobs":
		code = runJobs(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		code = 2
	}
	stop()
	os.Exit(code)
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) int {
	metrics := observability.NewMetrics()

	rt, err := openRuntime(ctx, cfg, logger, metrics.Registerer())
	if err != nil {
		logger.Error("open runtime", slog.Any("error", err))
		return 1
	}
	defer rt.Close()

	health := map[string]app.HealthChecker{
		"postgres":  func(r *http.Request) error { return rt.pool.Ping(r.Context()) },
		"warehouse": func(r *http.Request) error { return rt.warehouse.PingContext(r.Context()) },
	}

	var jobHandler *jobs.Handler
	if rt.redis != nil {
		health["redis"] = func(r *http.Request) error { return rt.redis.Ping(r.Context()).Err() }
		inspector := asynq.NewInspector(redisOpts(cfg))
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("asynq inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	settlementHandler := settlementhttp.NewHandler(logger, rt.reports, rt.expenses, rt.splits, cfg.ReportRateLimit)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SettlementHandler: settlementHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
		Health:            health,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
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
		return 1
	}
	return 0
}
