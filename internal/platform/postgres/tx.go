package postgres

import (
	"context"
	"database/sql"
	"time"

	dErrors "quantumtrust/pkg/domain-errors"
	txcontext "quantumtrust/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// TxManager runs a function inside one read-committed transaction. Stores pick the
// transaction up from the context, so everything fn does commits or rolls back together.
type TxManager struct {
	db      *sql.DB
	timeout time.Duration
}

// NewTxManager constructs a TxManager. A zero timeout uses the default.
func NewTxManager(db *sql.DB, timeout time.Duration) *TxManager {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &TxManager{db: db, timeout: timeout}
}

// RunInTx begins a transaction, calls fn with a context carrying it, and commits
// when fn returns nil. Any error (or panic) rolls the transaction back. Errors
// returned by fn pass through unchanged; begin/commit failures are StoreUnavailable.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := txcontext.From(ctx); ok {
		// already inside a transaction: join it
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to commit transaction")
	}
	return nil
}
