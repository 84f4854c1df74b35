package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	txs  []*fakeTx
	opts []pgx.TxOptions
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = append(b.opts, opts)
	tx := &fakeTx{}
	if len(b.txs) > len(b.opts)-1 {
		tx = b.txs[len(b.opts)-1]
	}
	return tx, nil
}

var conflict = &pgconn.PgError{Code: "40001", Message: "could not serialize access"}

func TestWithTxCommitsSerializable(t *testing.T) {
	tx := &fakeTx{}
	b := &fakeBeginner{txs: []*fakeTx{tx}}

	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, tx.committed)
	require.Len(t, b.opts, 1)
	assert.Equal(t, pgx.Serializable, b.opts[0].IsoLevel)
}

func TestWithTxRetriesSerializationFailure(t *testing.T) {
	first, second := &fakeTx{commitErr: conflict}, &fakeTx{}
	b := &fakeBeginner{txs: []*fakeTx{first, second}}
	runs := 0

	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		runs++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
	assert.True(t, first.rolledBack)
	assert.True(t, second.committed)
}

func TestWithTxGivesUpAfterRepeatedConflicts(t *testing.T) {
	b := &fakeBeginner{}
	runs := 0

	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		runs++
		return conflict
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, conflict)
	assert.Equal(t, txAttempts, runs)
}

func TestWithTxDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("duplicate key")
	tx := &fakeTx{}
	b := &fakeBeginner{txs: []*fakeTx{tx}}
	runs := 0

	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		runs++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, runs)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}
