// Package sqltx adapts database/sql transactions to txn.Transaction.
package sqltx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fruitsalade/attachments/internal/txn"
)

// Tx is a *sql.Tx whose completion callbacks fire on Commit or Rollback.
// A failed commit counts as not committed.
type Tx struct {
	*sql.Tx
	listeners txn.Listeners
}

var _ txn.Transaction = (*Tx)(nil)

// Begin starts a transaction on db.
func Begin(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{Tx: tx}, nil
}

// OnCompletion implements txn.Transaction.
func (t *Tx) OnCompletion(fn func(committed bool)) {
	t.listeners.OnCompletion(fn)
}

// Commit commits the transaction and runs the callbacks.
func (t *Tx) Commit() error {
	err := t.Tx.Commit()
	t.listeners.Finish(err == nil)
	return err
}

// Rollback aborts the transaction and runs the callbacks.
func (t *Tx) Rollback() error {
	err := t.Tx.Rollback()
	t.listeners.Finish(false)
	return err
}
