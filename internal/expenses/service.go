package expenses

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Store is the persistence contract of the ledger.
type Store interface {
	ListByEvent(ctx context.Context, prodID int64) ([]Expense, error)
	Upsert(ctx context.Context, e Expense) (Expense, error)
	Delete(ctx context.Context, prodID, rowID int64) error
}

// ChangeNotifier is told when an event's expenses change.
type ChangeNotifier interface {
	Invalidate(ctx context.Context, prodID int64) error
}

// Service exposes the expense ledger operations.
type Service struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
	notifier ChangeNotifier
}

// NewService builds the ledger service. notifier may be nil.
func NewService(store Store, logger *slog.Logger, notifier ChangeNotifier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validate: validator.New(), logger: logger, notifier: notifier}
}

// List returns the expenses of an event.
func (s *Service) List(ctx context.Context, prodID int64) ([]Expense, error) {
	return s.store.ListByEvent(ctx, prodID)
}

// Save validates and upserts a row.
func (s *Service) Save(ctx context.Context, e Expense) (Expense, error) {
	if err := s.validate.Struct(e); err != nil {
		return Expense{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	saved, err := s.store.Upsert(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.logger.Info("expense saved", slog.Int64("prod_id", e.ProdID), slog.Int64("row_id", e.RowID), slog.String("amount", e.Amount.String()))
	s.changed(ctx, e.ProdID)
	return saved, nil
}

// Delete removes a row.
func (s *Service) Delete(ctx context.Context, prodID, rowID int64) error {
	if err := s.store.Delete(ctx, prodID, rowID); err != nil {
		return err
	}
	s.logger.Info("expense deleted", slog.Int64("prod_id", prodID), slog.Int64("row_id", rowID))
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
