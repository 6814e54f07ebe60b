package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
)

// TxRunner implements repository.TxRunner. Checkout runs at READ COMMITTED:
// its stock invariant rests on the conditional decrement, not on isolation.
type TxRunner struct {
	pool database.DBTX
}

// NewTxRunner creates a transaction runner over pool.
func NewTxRunner(pool database.DBTX) *TxRunner {
	return &TxRunner{pool: pool}
}

// InTx commits when fn returns nil and rolls back otherwise.
func (t *TxRunner) InTx(ctx context.Context, fn func(q database.Querier) error) error {
	return database.WithTx(ctx, t.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
