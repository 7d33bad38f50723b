package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
// Repositories are built over it so the same code runs standalone against the
// pool or bound to a transaction by the TxRunner.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner executes a callback inside one PostgreSQL transaction. Multi-row
// writes (entity plus dynamic fields, transaction header plus lines) go
// through it so a deadline or crash mid-operation cannot leave a half-written
// record.
type TxRunner struct {
	db *DB
}

// NewTxRunner builds the runner over the pool.
func NewTxRunner(db *DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run begins a transaction, invokes fn with it, and commits on success or
// rolls back on error. The deferred rollback after a successful commit is a
// no-op.
func (r *TxRunner) Run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.run(ctx, pgx.TxOptions{}, fn)
}

// RunSnapshot is Run at REPEATABLE READ, so every statement inside fn reads
// the same snapshot. Graph traversals go through it: a multi-hop walk must not
// observe edges appearing or vanishing between hops.
func (r *TxRunner) RunSnapshot(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
