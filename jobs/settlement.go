package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/salsation/eventfin/internal/event"
	jobmetrics "github.com/salsation/eventfin/internal/jobs"
	"github.com/salsation/eventfin/internal/settlement"
)

type reportComputer interface {
	Compute(ctx context.Context, prodID int64) (settlement.Report, error)
}

type referenceBumper interface {
	BumpReference(ctx context.Context) (int64, error)
}

// WarmupJob precomputes settlement reports so the first request hits the cache.
type WarmupJob struct {
	Reports reportComputer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewWarmupJob wires dependencies for the warm-up handler.
func NewWarmupJob(reports reportComputer, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{Reports: reports, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSettlementWarmup tasks. Unknown events are skipped.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("settlement warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("settlement warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskSettlementWarmup)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger)
	warmed := 0
	for _, prodID := range payload.ProdIDs {
		report, err := j.Reports.Compute(ctx, prodID)
		if errors.Is(err, event.ErrEventNotFound) {
			logger.Warn("warmup skipped unknown event", slog.Int64("prod_id", prodID))
			continue
		}
		if err != nil {
			logger.Error("warm settlement report", slog.Int64("prod_id", prodID), slog.Any("error", err))
			return err
		}
		if len(report.Diagnostics) > 0 {
			logger.Warn("settlement report has reference gaps",
				slog.Int64("prod_id", prodID),
				slog.Int("gaps", len(report.Diagnostics)))
		}
		warmed++
	}
	j.Metrics.AddEvents(TaskSettlementWarmup, warmed)
	logger.Info("settlement warmup completed", slog.Int("events", warmed))
	return nil
}

// ReferenceBumpJob invalidates every cached report.
type ReferenceBumpJob struct {
	Cache   referenceBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReferenceBumpJob wires dependencies for the bump handler.
func NewReferenceBumpJob(cache referenceBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReferenceBumpJob {
	return &ReferenceBumpJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes TaskReferenceBump tasks.
func (j *ReferenceBumpJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Cache == nil {
		return errors.New("reference bump: handler not configured")
	}
	var payload ReferenceBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("reference bump: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskReferenceBump)
	defer func() { err = tracker.End(err) }()

	version, err := j.Cache.BumpReference(ctx)
	if err != nil {
		return fmt.Errorf("reference bump: %w", err)
	}
	loggerOrDefault(j.Logger).Info("reference version bumped",
		slog.Int64("version", version),
		slog.String("reason", payload.Reason))
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
