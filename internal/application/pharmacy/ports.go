package pharmacy

import (
	"context"

	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción de BD.
type TxRepos struct {
	Medicines repository.MedicineRepository
	Batches   repository.BatchRepository
	Orders    repository.SaleOrderRepository
	Movements repository.InventoryMovementRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn retorna error se hace Rollback; si no, Commit. Un conflicto de concurrencia
// (descuento condicional fallido o fallo de serialización) se reporta como domain.ErrConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}
