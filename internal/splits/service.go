package splits

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Store is the persistence contract for splits.
type Store interface {
	ListByEvent(ctx context.Context, prodID int64) ([]TrainerSplit, error)
	Upsert(ctx context.Context, s TrainerSplit) (TrainerSplit, error)
	Delete(ctx context.Context, prodID, rowID int64) error
}

// ChangeNotifier is told when an event's splits change.
type ChangeNotifier interface {
	Invalidate(ctx context.Context, prodID int64) error
}

// Transactor runs fn against a Store bound to a transaction holding the event's split lock.
type Transactor interface {
	InEventTx(ctx context.Context, prodID int64, fn func(Store) error) error
}

// Service reconciles trainer splits.
type Service struct {
	store    Store
	tx       Transactor
	validate *validator.Validate
	logger   *slog.Logger
	notifier ChangeNotifier
}

// Option customises the service.
type Option func(*Service)

// WithTransactor serialises saves per event so concurrent writers cannot push the total above 100.
func WithTransactor(tx Transactor) Option {
	return func(s *Service) { s.tx = tx }
}

// NewService builds the split service. notifier may be nil.
func NewService(store Store, logger *slog.Logger, notifier ChangeNotifier, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, validate: validator.New(), logger: logger, notifier: notifier}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns persisted rows as stored. Totals above 100 are not corrected.
func (s *Service) List(ctx context.Context, prodID int64) ([]TrainerSplit, error) {
	rows, err := s.store.ListByEvent(ctx, prodID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Recompute()
	}
	return rows, nil
}

// Check validates the event's rows as they would be after saving candidate.
func (s *Service) Check(ctx context.Context, candidate TrainerSplit) (Validation, error) {
	current, err := s.store.ListByEvent(ctx, candidate.ProdID)
	if err != nil {
		return Validation{}, err
	}
	return ValidateTotal(Merge(current, candidate)), nil
}

// Save validates the candidate against the event's other rows and upserts it.
func (s *Service) Save(ctx context.Context, candidate TrainerSplit) (TrainerSplit, error) {
	if err := s.validate.Struct(candidate); err != nil {
		return TrainerSplit{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	candidate.Recompute()

	var saved TrainerSplit
	err := s.inEventTx(ctx, candidate.ProdID, func(store Store) error {
		current, err := store.ListByEvent(ctx, candidate.ProdID)
		if err != nil {
			return err
		}
		result := ValidateTotal(Merge(current, candidate))
		if !result.Valid {
			s.logger.Warn("split save rejected",
				slog.Int64("prod_id", candidate.ProdID),
				slog.Int64("row_id", candidate.RowID),
				slog.String("total", result.Total.String()))
			return fmt.Errorf("%w: total %s", ErrInvalidSplitTotal, result.Total.String())
		}
		saved, err = store.Upsert(ctx, candidate)
		return err
	})
	if err != nil {
		return TrainerSplit{}, err
	}
	s.changed(ctx, candidate.ProdID)
	return saved, nil
}

func (s *Service) inEventTx(ctx context.Context, prodID int64, fn func(Store) error) error {
	if s.tx == nil {
		return fn(s.store)
	}
	return s.tx.InEventTx(ctx, prodID, fn)
}

// Delete removes a row.
func (s *Service) Delete(ctx context.Context, prodID, rowID int64) error {
	if err := s.store.Delete(ctx, prodID, rowID); err != nil {
		return err
	}
	s.changed(ctx, prodID)
	return nil
}

func (s *Service) changed(ctx context.Context, prodID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Invalidate(ctx, prodID); err != nil {
		s.logger.Warn("invalidate settlement cache", slog.Int64("prod_id", prodID), slog.Any("error", err))
	}
}
