package graceprice

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

// Repository reads grace price conversions. Writes belong to the admin surface.
type Repository struct {
	db dbtx
}

// NewRepository binds the repository to a pool or transaction.
func NewRepository(db dbtx) *Repository {
	return &Repository{db: db}
}

// All returns every configured conversion.
func (r *Repository) All(ctx context.Context) ([]Conversion, error) {
	rows, err := r.db.Query(ctx, `SELECT conversion_key, jpy_price, eur_price FROM grace_price_conversions ORDER BY conversion_key`)
	if err != nil {
		return nil, fmt.Errorf("graceprice: list: %w", err)
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		var c Conversion
		if err := rows.Scan(&c.Key, &c.JPYPrice, &c.EURPrice); err != nil {
			return nil, fmt.Errorf("graceprice: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
