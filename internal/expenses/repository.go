package expenses

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

// Repository persists event expenses in PostgreSQL.
type Repository struct {
	db dbtx
}

// NewRepository constructs a repository.
func NewRepository(db dbtx) *Repository {
	return &Repository{db: db}
}

// ListByEvent returns the expenses of an event ordered by row id.
func (r *Repository) ListByEvent(ctx context.Context, prodID int64) ([]Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT prod_id, row_id, description, amount, updated_at
		FROM event_expenses
		WHERE prod_id = $1
		ORDER BY row_id`, prodID)
	if err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	defer rows.Close()

	out := make([]Expense, 0)
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ProdID, &e.RowID, &e.Description, &e.Amount, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("expenses: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces the row identified by (prod_id, row_id). Last write wins.
func (r *Repository) Upsert(ctx context.Context, e Expense) (Expense, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO event_expenses (prod_id, row_id, description, amount, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (prod_id, row_id)
		DO UPDATE SET description = EXCLUDED.description, amount = EXCLUDED.amount, updated_at = NOW()
		RETURNING updated_at`, e.ProdID, e.RowID, e.Description, e.Amount).Scan(&e.UpdatedAt)
	if err != nil {
		return Expense{}, fmt.Errorf("expenses: upsert: %w", err)
	}
	return e, nil
}

// Delete removes a row.
func (r *Repository) Delete(ctx context.Context, prodID, rowID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM event_expenses WHERE prod_id = $1 AND row_id = $2`, prodID, rowID)
	if err != nil {
		return fmt.Errorf("expenses: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
