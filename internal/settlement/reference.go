package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/salsation/eventfin/internal/feeparam"
	"github.com/salsation/eventfin/internal/graceprice"
	"github.com/salsation/eventfin/internal/platform/db"
)

// Reference is one consistent snapshot of the admin-maintained reference tables.
type Reference struct {
	Fees     feeparam.Snapshot
	Grace    graceprice.Table
	LoadedAt time.Time
}

// ReferenceLoader produces reference snapshots.
type ReferenceLoader interface {
	LoadReference(ctx context.Context) (Reference, error)
}

// PostgresReference loads fee params and grace prices inside one read-only transaction.
type PostgresReference struct {
	pool db.TxBeginner
}

// NewPostgresReference constructs the loader.
func NewPostgresReference(pool db.TxBeginner) *PostgresReference {
	return &PostgresReference{pool: pool}
}

// LoadReference implements ReferenceLoader.
func (p *PostgresReference) LoadReference(ctx context.Context) (Reference, error) {
	var ref Reference
	err := db.WithSnapshot(ctx, p.pool, func(tx pgx.Tx) error {
		fees, err := feeparam.NewRepository(tx).All(ctx)
		if err != nil {
			return err
		}
		conversions, err := graceprice.NewRepository(tx).All(ctx)
		if err != nil {
			return err
		}
		ref = Reference{
			Fees:     feeparam.NewSnapshot(fees),
			Grace:    graceprice.NewTable(conversions),
			LoadedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return Reference{}, fmt.Errorf("settlement: load reference: %w", err)
	}
	return ref, nil
}
