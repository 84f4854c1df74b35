package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TxBeginner starts transactions; *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// txAttempts bounds retries of a transaction aborted by a serialization conflict.
const txAttempts = 3

// WithTx runs fn in a serializable transaction. Replacing report months must
// not interleave with a concurrent seed, so conflicts (SQLSTATE 40001) are
// retried with a fresh transaction. fn must be safe to run more than once.
func WithTx(ctx context.Context, db TxBeginner, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = runTx(ctx, db, fn)
		if !isSerializationFailure(err) || ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("platform/db: gave up after %d attempts: %w", txAttempts, err)
}

func runTx(ctx context.Context, db TxBeginner, fn func(pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
