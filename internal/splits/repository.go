package splits

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository persists trainer splits in PostgreSQL.
type Repository struct {
	db dbtx
}

// NewRepository constructs a repository.
func NewRepository(db dbtx) *Repository {
	return &Repository{db: db}
}

// ListByEvent returns the splits of an event ordered by row id.
func (r *Repository) ListByEvent(ctx context.Context, prodID int64) ([]TrainerSplit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT prod_id, row_id, name, percent, trainer_fee, cash_received, updated_at
		FROM trainer_splits
		WHERE prod_id = $1
		ORDER BY row_id`, prodID)
	if err != nil {
		return nil, fmt.Errorf("splits: list: %w", err)
	}
	defer rows.Close()

	out := make([]TrainerSplit, 0)
	for rows.Next() {
		var s TrainerSplit
		if err := rows.Scan(&s.ProdID, &s.RowID, &s.Name, &s.Percent, &s.TrainerFee, &s.CashReceived, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("splits: scan: %w", err)
		}
		s.Recompute()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces the row identified by (prod_id, row_id).
func (r *Repository) Upsert(ctx context.Context, s TrainerSplit) (TrainerSplit, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO trainer_splits (prod_id, row_id, name, percent, trainer_fee, cash_received, payable, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (prod_id, row_id)
		DO UPDATE SET name = EXCLUDED.name, percent = EXCLUDED.percent, trainer_fee = EXCLUDED.trainer_fee,
			cash_received = EXCLUDED.cash_received, payable = EXCLUDED.payable, updated_at = NOW()
		RETURNING updated_at`,
		s.ProdID, s.RowID, s.Name, s.Percent, s.TrainerFee, s.CashReceived, s.Payable).Scan(&s.UpdatedAt)
	if err != nil {
		return TrainerSplit{}, fmt.Errorf("splits: upsert: %w", err)
	}
	return s, nil
}

// Delete removes a row.
func (r *Repository) Delete(ctx context.Context, prodID, rowID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trainer_splits WHERE prod_id = $1 AND row_id = $2`, prodID, rowID)
	if err != nil {
		return fmt.Errorf("splits: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
