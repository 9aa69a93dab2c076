package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
	"github.com/jhoicas/Clinica-api/internal/domain"
)

// fakeTx pgx.Tx en memoria: solo implementa lo que usan los repos de lotes y el runner.
type fakeTx struct {
	pgx.Tx
	execTag   pgconn.CommandTag
	execErr   error
	rowErr    error
	commitErr error

	queryArgs  []any
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return f.execTag, f.execErr
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: f.rowErr}
}

func (f *fakeTx) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	f.queryArgs = args
	return nil, errors.New("sin filas en fakeTx")
}

func (f *fakeTx) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeRow struct{ err error }

func (r fakeRow) Scan(...any) error { return r.err }

type fakeStarter struct {
	tx   *fakeTx
	err  error
	opts pgx.TxOptions
}

func (s *fakeStarter) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.tx, nil
}

func TestBatchRepo_DecrementQuantityCAS(t *testing.T) {
	ctx := context.Background()

	tx := &fakeTx{execTag: pgconn.NewCommandTag("UPDATE 1")}
	require.NoError(t, NewBatchRepository(tx).DecrementQuantity(ctx, "B1", 5, 2))

	// la fila existe pero current_quantity ya no es la leída
	tx = &fakeTx{execTag: pgconn.NewCommandTag("UPDATE 0")}
	assert.ErrorIs(t, NewBatchRepository(tx).DecrementQuantity(ctx, "B1", 5, 2), domain.ErrConflict)

	tx = &fakeTx{execTag: pgconn.NewCommandTag("UPDATE 0"), rowErr: pgx.ErrNoRows}
	assert.ErrorIs(t, NewBatchRepository(tx).DecrementQuantity(ctx, "B9", 5, 2), domain.ErrNotFound)

	tx = &fakeTx{execErr: &pgconn.PgError{Code: "40001"}}
	assert.ErrorIs(t, NewBatchRepository(tx).DecrementQuantity(ctx, "B1", 5, 2), domain.ErrConflict)

	assert.ErrorIs(t, NewBatchRepository(&fakeTx{}).DecrementQuantity(ctx, "B1", 2, 3), domain.ErrInvalidInput)
}

func TestBatchRepo_ListExpiringBeforeEnviaFechaCalendario(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	tx := &fakeTx{}
	// 02:00 del 1 de febrero en Ho Chi Minh es todavía 31 de enero en UTC
	_, err := NewBatchRepository(tx).ListExpiringBefore(context.Background(), time.Date(2025, 2, 1, 2, 0, 0, 0, ict))
	require.Error(t, err)
	require.Len(t, tx.queryArgs, 1)
	assert.Equal(t, "2025-02-01", tx.queryArgs[0])
}

func TestTxRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		starter := &fakeStarter{tx: &fakeTx{execTag: pgconn.NewCommandTag("UPDATE 1")}}
		err := (&TxRunner{db: starter}).Run(ctx, func(repos pharmacy.TxRepos) error {
			return repos.Batches.DecrementQuantity(ctx, "B1", 5, 1)
		})
		require.NoError(t, err)
		assert.True(t, starter.tx.committed)
		assert.Equal(t, pgx.RepeatableRead, starter.opts.IsoLevel)
	})

	t.Run("fallo de serialización en una sentencia", func(t *testing.T) {
		starter := &fakeStarter{tx: &fakeTx{execErr: &pgconn.PgError{Code: "40001"}}}
		err := (&TxRunner{db: starter}).Run(ctx, func(repos pharmacy.TxRepos) error {
			return repos.Batches.DecrementQuantity(ctx, "B1", 5, 1)
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.False(t, starter.tx.committed)
		assert.True(t, starter.tx.rolledBack)
	})

	t.Run("error crudo de serialización devuelto por fn", func(t *testing.T) {
		starter := &fakeStarter{tx: &fakeTx{}}
		err := (&TxRunner{db: starter}).Run(ctx, func(pharmacy.TxRepos) error {
			return &pgconn.PgError{Code: "40P01"}
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("CAS sin filas", func(t *testing.T) {
		starter := &fakeStarter{tx: &fakeTx{execTag: pgconn.NewCommandTag("UPDATE 0")}}
		err := (&TxRunner{db: starter}).Run(ctx, func(repos pharmacy.TxRepos) error {
			return repos.Batches.DecrementQuantity(ctx, "B1", 5, 1)
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.True(t, starter.tx.rolledBack)
	})

	t.Run("fallo de serialización en commit", func(t *testing.T) {
		starter := &fakeStarter{tx: &fakeTx{commitErr: &pgconn.PgError{Code: "40001"}}}
		err := (&TxRunner{db: starter}).Run(ctx, func(pharmacy.TxRepos) error { return nil })
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("otros errores pasan sin cambio", func(t *testing.T) {
		starter := &fakeStarter{tx: &fakeTx{}}
		err := (&TxRunner{db: starter}).Run(ctx, func(pharmacy.TxRepos) error {
			return &domain.InsufficientStockError{MedicineID: "M", Requested: 3, Available: 1}
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.NotErrorIs(t, err, domain.ErrConflict)
		assert.True(t, starter.tx.rolledBack)
	})

	t.Run("begin falla", func(t *testing.T) {
		boom := errors.New("sin conexión")
		err := (&TxRunner{db: &fakeStarter{err: boom}}).Run(ctx, func(pharmacy.TxRepos) error { return nil })
		assert.ErrorIs(t, err, boom)
	})
}
