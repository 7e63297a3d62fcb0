package splits

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/salsation/eventfin/internal/platform/db"
)

// LockKey names the advisory lock guarding the splits of one event.
func LockKey(prodID int64) string {
	return fmt.Sprintf("trainer_splits:event:%d:lock", prodID)
}

// LockingTransactor takes a transaction-scoped advisory lock per event before
// handing a Repository bound to the transaction to fn.
type LockingTransactor struct {
	pool db.TxBeginner
}

// NewLockingTransactor constructs the transactor.
func NewLockingTransactor(pool db.TxBeginner) *LockingTransactor {
	return &LockingTransactor{pool: pool}
}

// InEventTx implements Transactor. The transaction is read committed so rows
// committed by the previous lock holder are visible once the lock is acquired.
func (t *LockingTransactor) InEventTx(ctx context.Context, prodID int64, fn func(Store) error) error {
	return db.WithTxOptions(ctx, t.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, LockKey(prodID)); err != nil {
			return fmt.Errorf("splits: lock event %d: %w", prodID, err)
		}
		return fn(NewRepository(tx))
	})
}
