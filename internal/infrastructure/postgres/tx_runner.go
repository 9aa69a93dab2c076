package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
)

var _ pharmacy.TxRunner = (*TxRunner)(nil)

// txStarter lo cumple *pgxpool.Pool.
type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL RepeatableRead.
type TxRunner struct {
	db txStarter
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{db: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los fallos de serialización (40001/40P01), tanto en las sentencias como en el commit,
// se devuelven como domain.ErrConflict para que el caso de uso reintente.
func (r *TxRunner) Run(ctx context.Context, fn func(repos pharmacy.TxRepos) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := pharmacy.TxRepos{
		Medicines: NewMedicineRepository(tx),
		Batches:   NewBatchRepository(tx),
		Orders:    NewSaleOrderRepository(tx),
		Movements: NewInventoryMovementRepository(tx),
	}
	if err := fn(repos); err != nil {
		if isSerializationFailure(err) {
			return wrap("tx", err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}
