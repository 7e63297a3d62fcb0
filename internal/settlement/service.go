package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/expenses"
	"github.com/salsation/eventfin/internal/splits"
	"github.com/salsation/eventfin/internal/tickets"
	"github.com/salsation/eventfin/internal/trainerfee"
)

// EventSource provides event metadata and pre-joined ticket rows.
type EventSource interface {
	GetEvent(ctx context.Context, prodID int64) (event.Event, error)
	GetRawTicketRows(ctx context.Context, prodID int64) ([]tickets.RawTicketRow, error)
}

// ExpenseLister lists the expenses of an event.
type ExpenseLister interface {
	List(ctx context.Context, prodID int64) ([]expenses.Expense, error)
}

// SplitLister lists the trainer splits of an event.
type SplitLister interface {
	List(ctx context.Context, prodID int64) ([]splits.TrainerSplit, error)
}

// Sources bundles the collaborators a report is loaded from.
type Sources struct {
	Events    EventSource
	Reference ReferenceLoader
	Expenses  ExpenseLister
	Splits    SplitLister
}

// Service computes settlement reports.
type Service struct {
	src     Sources
	cache   *Cache
	metrics *Metrics
	logger  *slog.Logger
	opts    trainerfee.Options
	flight  singleflight.Group
	now     func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTicketFee overrides the per-bucket fee function of the standard strategy.
func WithTicketFee(fn trainerfee.TicketFeeFunc) Option {
	return func(s *Service) { s.opts.TicketFee = fn }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the settlement service. cache may be nil.
func NewService(src Sources, cache *Cache, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{src: src, cache: cache, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute returns the settlement report of an event. Every call loads the event's rows,
// expenses and splits and one reference snapshot; the cache only saves the assembly
// when all of those match a previous computation. Concurrent calls for the same event
// share one computation.
func (s *Service) Compute(ctx context.Context, prodID int64) (Report, error) {
	val, err, _ := s.singleflight(ctx, "settlement:compute:"+strconv.FormatInt(prodID, 10), func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx, prodID)
	})
	if err != nil {
		return Report{}, err
	}
	return val.(Report), nil
}

func (s *Service) compute(ctx context.Context, prodID int64) (Report, error) {
	start := time.Now()
	in, err := s.load(ctx, prodID)
	if err != nil {
		if !errors.Is(err, event.ErrEventNotFound) {
			s.logger.Error("load settlement sources", slog.Int64("prod_id", prodID), slog.Any("error", err))
		}
		return Report{}, err
	}
	fingerprint, err := in.Fingerprint()
	if err != nil {
		return Report{}, err
	}
	generation, err := s.cache.BuildKey(ctx, prodID)
	if err != nil {
		return Report{}, err
	}
	key := generation + ":" + fingerprint

	var report Report
	hit, err := s.cache.FetchJSON(ctx, key, &report, func(context.Context) (interface{}, error) {
		return s.assemble(in, prodID, key), nil
	})
	if err != nil {
		return Report{}, err
	}
	s.metrics.observeCache(hit)
	if !hit {
		s.metrics.observeBuild(time.Since(start))
	}
	report.GeneratedAt = s.now().UTC()
	return report, nil
}

// Invalidate drops cached reports of an event.
func (s *Service) Invalidate(ctx context.Context, prodID int64) error {
	return s.cache.Invalidate(ctx, prodID)
}

func (s *Service) singleflight(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := s.flight.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

func (s *Service) load(ctx context.Context, prodID int64) (Input, error) {
	var in Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ev, err := s.src.Events.GetEvent(gctx, prodID)
		if err != nil {
			return fmt.Errorf("settlement: load event: %w", err)
		}
		in.Event = ev
		return nil
	})
	g.Go(func() error {
		rows, err := s.src.Events.GetRawTicketRows(gctx, prodID)
		if err != nil {
			return fmt.Errorf("settlement: load tickets: %w", err)
		}
		in.Rows = rows
		return nil
	})
	g.Go(func() error {
		ref, err := s.src.Reference.LoadReference(gctx)
		if err != nil {
			return err
		}
		in.Reference = ref
		return nil
	})
	g.Go(func() error {
		rows, err := s.src.Expenses.List(gctx, prodID)
		if err != nil {
			return fmt.Errorf("settlement: load expenses: %w", err)
		}
		in.Expenses = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.src.Splits.List(gctx, prodID)
		if err != nil {
			return fmt.Errorf("settlement: load splits: %w", err)
		}
		in.Splits = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (s *Service) assemble(in Input, prodID int64, key string) Report {
	report := Assemble(in, s.opts, func(d Diagnostic) {
		s.metrics.observeDiagnostic(d)
		s.logger.Warn("settlement data gap",
			slog.Int64("prod_id", prodID),
			slog.String("kind", string(d.Kind)),
			slog.String("key", d.Key))
	})
	report.ID = ReportID(key)
	return report
}
