package feeparam

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

// Repository reads fee parameters. Writes belong to the admin surface.
type Repository struct {
	db dbtx
}

// NewRepository binds the repository to a pool or transaction.
func NewRepository(db dbtx) *Repository {
	return &Repository{db: db}
}

// All returns every configured fee parameter.
func (r *Repository) All(ctx context.Context) ([]FeeParam, error) {
	rows, err := r.db.Query(ctx, `SELECT param_key, percent FROM fee_params ORDER BY param_key`)
	if err != nil {
		return nil, fmt.Errorf("feeparam: list: %w", err)
	}
	defer rows.Close()

	var params []FeeParam
	for rows.Next() {
		var p FeeParam
		if err := rows.Scan(&p.Key, &p.Percent); err != nil {
			return nil, fmt.Errorf("feeparam: scan: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}
