package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `id, medicine_id, batch_number, expiry_date, import_date, cost_price,
	original_quantity, current_quantity, supplier, created_at, updated_at`

// Orden FEFO: vence antes primero, empate por ID.
const fefoOrder = ` ORDER BY expiry_date, id`

// BatchRepo lotes de inventario sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

func scanBatch(row pgx.Row) (*entity.InventoryBatch, error) {
	var b entity.InventoryBatch
	err := row.Scan(
		&b.ID, &b.MedicineID, &b.BatchNumber, &b.ExpiryDate, &b.ImportDate, &b.CostPrice,
		&b.OriginalQuantity, &b.CurrentQuantity, &b.Supplier, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BatchRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.InventoryBatch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	var list []*entity.InventoryBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return list, nil
}

// Create persiste un lote recién recibido.
func (r *BatchRepo) Create(ctx context.Context, b *entity.InventoryBatch) error {
	if b.CurrentQuantity < 0 || b.CurrentQuantity > b.OriginalQuantity {
		return domain.ErrInvalidInput
	}
	query := `
		INSERT INTO inventory_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.MedicineID, b.BatchNumber, b.ExpiryDate, b.ImportDate, b.CostPrice,
		b.OriginalQuantity, b.CurrentQuantity, b.Supplier, b.CreatedAt, b.UpdatedAt,
	)
	return wrap("insert batch", err)
}

// GetByID obtiene un lote por ID.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("get batch", err)
	}
	return b, nil
}

// ListAvailableByMedicine lotes con existencias en orden FEFO.
func (r *BatchRepo) ListAvailableByMedicine(ctx context.Context, medicineID string) ([]*entity.InventoryBatch, error) {
	return r.ListByMedicine(ctx, medicineID, false)
}

// ListByMedicine lotes del medicamento en orden FEFO; includeDepleted incluye los agotados.
func (r *BatchRepo) ListByMedicine(ctx context.Context, medicineID string, includeDepleted bool) ([]*entity.InventoryBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches
		WHERE medicine_id = $1 AND ($2::boolean OR current_quantity > 0)` + fefoOrder
	return r.list(ctx, "list batches", query, medicineID, includeDepleted)
}

// ListExpiringBefore lotes con existencias que vencen antes de la fecha calendario de before.
// Se envía la fecha como texto para que la zona de la sesión no la corra un día.
func (r *BatchRepo) ListExpiringBefore(ctx context.Context, before time.Time) ([]*entity.InventoryBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches
		WHERE current_quantity > 0 AND expiry_date < $1::date` + fefoOrder
	return r.list(ctx, "list expiring batches", query, sqlDate(before))
}

// DecrementQuantity descuento condicional (compare-and-set sobre current_quantity).
// Si ninguna fila coincide, distingue entre lote inexistente y cantidad cambiada (domain.ErrConflict).
func (r *BatchRepo) DecrementQuantity(ctx context.Context, batchID string, expected, by int64) error {
	if by <= 0 || by > expected {
		return domain.ErrInvalidInput
	}
	query := `
		UPDATE inventory_batches
		SET current_quantity = current_quantity - $3, updated_at = now()
		WHERE id = $1 AND current_quantity = $2`
	tag, err := r.q.Exec(ctx, query, batchID, expected, by)
	if err != nil {
		return wrap("decrement batch", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, batchID); err != nil {
		return err
	}
	return domain.ErrConflict
}

// TotalsByMedicine existencias totales por medicamento.
func (r *BatchRepo) TotalsByMedicine(ctx context.Context) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT medicine_id, COALESCE(SUM(current_quantity), 0)::bigint
		FROM inventory_batches GROUP BY medicine_id`)
	if err != nil {
		return nil, wrap("batch totals", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var total int64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scan batch totals: %w", err)
		}
		out[id] = total
	}
	return out, rows.Err()
}
