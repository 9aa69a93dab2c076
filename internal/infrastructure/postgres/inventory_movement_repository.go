package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste un movimiento de inventario.
func (r *InventoryMovementRepo) Create(ctx context.Context, movement *entity.InventoryMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_movements (id, transaction_id, medicine_id, batch_id, type, quantity, unit_cost, total_cost, reason, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	createdBy := (*string)(nil)
	if movement.CreatedBy != "" {
		createdBy = &movement.CreatedBy
	}
	_, err := r.q.Exec(ctx, query,
		movement.ID, movement.TransactionID, movement.MedicineID, movement.BatchID,
		movement.Type, movement.Quantity, movement.UnitCost, movement.TotalCost,
		movement.Reason, movement.CreatedAt, createdBy,
	)
	if err != nil {
		return wrap("create inventory movement", err)
	}
	return nil
}

// ListByBatch kardex de un lote en orden cronológico.
func (r *InventoryMovementRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.InventoryMovement, error) {
	query := `
		SELECT id, transaction_id, medicine_id, batch_id, type, quantity, unit_cost, total_cost, reason, created_at, created_by
		FROM inventory_movements WHERE batch_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, batchID)
	if err != nil {
		return nil, wrap("list movements", err)
	}
	defer rows.Close()
	var list []*entity.InventoryMovement
	for rows.Next() {
		var m entity.InventoryMovement
		var createdBy *string
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.MedicineID, &m.BatchID, &m.Type,
			&m.Quantity, &m.UnitCost, &m.TotalCost, &m.Reason, &m.CreatedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		if createdBy != nil {
			m.CreatedBy = *createdBy
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
