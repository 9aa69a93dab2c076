package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

// BatchRepository define el puerto para lotes de inventario.
// Usado dentro de transacciones para garantizar consistencia.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.InventoryBatch) error
	GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error)
	// ListAvailableByMedicine lotes con cantidad > 0, ordenados por vencimiento ascendente y luego por ID.
	ListAvailableByMedicine(ctx context.Context, medicineID string) ([]*entity.InventoryBatch, error)
	ListByMedicine(ctx context.Context, medicineID string, includeDepleted bool) ([]*entity.InventoryBatch, error)
	// ListExpiringBefore lotes con cantidad > 0 cuya fecha de vencimiento es anterior a la fecha
	// calendario de before. Solo cuenta la fecha de before (año, mes, día), no la hora ni la zona.
	ListExpiringBefore(ctx context.Context, before time.Time) ([]*entity.InventoryBatch, error)
	// DecrementQuantity resta by unidades solo si la cantidad almacenada sigue siendo expected.
	// Devuelve domain.ErrConflict si otro escritor cambió el lote entre la lectura y la escritura.
	DecrementQuantity(ctx context.Context, batchID string, expected, by int64) error
	// TotalsByMedicine suma de CurrentQuantity por medicamento.
	TotalsByMedicine(ctx context.Context) (map[string]int64, error)
}
