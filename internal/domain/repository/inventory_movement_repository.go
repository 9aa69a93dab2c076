package repository

import (
	"context"

	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

// InventoryMovementRepository define el puerto de persistencia para movimientos de inventario.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	ListByBatch(ctx context.Context, batchID string) ([]*entity.InventoryMovement, error)
}
