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

var _ repository.SaleOrderRepository = (*SaleOrderRepo)(nil)

const saleOrderColumns = `id, created_at, patient_id, patient_name, total_amount, status, created_by, sale_source`

// SaleOrderRepo órdenes de venta (cabecera + líneas) sobre PostgreSQL.
type SaleOrderRepo struct {
	q Querier
}

// NewSaleOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleOrderRepository(q Querier) *SaleOrderRepo {
	return &SaleOrderRepo{q: q}
}

// Create inserta cabecera y líneas. Debe llamarse dentro de la misma tx que descuenta los lotes.
func (r *SaleOrderRepo) Create(ctx context.Context, o *entity.SaleOrder) error {
	query := `
		INSERT INTO sale_orders (` + saleOrderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		o.ID, o.CreatedAt, o.PatientID, o.PatientName, o.TotalAmount, o.Status, o.CreatedBy, o.SaleSource,
	)
	if err != nil {
		return wrap("insert sale order", err)
	}

	itemQuery := `
		INSERT INTO sale_order_items (order_id, line_no, medicine_id, batch_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, it := range o.Items {
		if _, err := r.q.Exec(ctx, itemQuery,
			o.ID, i+1, it.MedicineID, it.BatchID, it.Quantity, it.UnitPrice, it.Subtotal,
		); err != nil {
			return wrap("insert sale order item", err)
		}
	}
	return nil
}

func scanSaleOrder(row pgx.Row) (*entity.SaleOrder, error) {
	var o entity.SaleOrder
	err := row.Scan(&o.ID, &o.CreatedAt, &o.PatientID, &o.PatientName, &o.TotalAmount, &o.Status, &o.CreatedBy, &o.SaleSource)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByID obtiene la orden con sus líneas en el orden en que se crearon.
func (r *SaleOrderRepo) GetByID(ctx context.Context, id string) (*entity.SaleOrder, error) {
	o, err := scanSaleOrder(r.q.QueryRow(ctx, `SELECT `+saleOrderColumns+` FROM sale_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("get sale order", err)
	}
	byOrder, err := r.items(ctx, `WHERE i.order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	o.Items = byOrder[o.ID]
	return o, nil
}

// ListByPeriod órdenes con created_at en [from, to), más recientes primero.
func (r *SaleOrderRepo) ListByPeriod(ctx context.Context, from, to time.Time) ([]*entity.SaleOrder, error) {
	query := `
		SELECT ` + saleOrderColumns + `
		FROM sale_orders
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id`
	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, wrap("list sale orders", err)
	}
	var list []*entity.SaleOrder
	for rows.Next() {
		o, err := scanSaleOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sale order: %w", err)
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap("list sale orders", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	byOrder, err := r.items(ctx, `
		JOIN sale_orders o ON o.id = i.order_id
		WHERE o.created_at >= $1 AND o.created_at < $2`, from, to)
	if err != nil {
		return nil, err
	}
	for _, o := range list {
		o.Items = byOrder[o.ID]
	}
	return list, nil
}

// items carga líneas agrupadas por orden; where recibe el alias i para sale_order_items.
func (r *SaleOrderRepo) items(ctx context.Context, where string, args ...any) (map[string][]entity.SaleOrderItem, error) {
	query := `
		SELECT i.order_id, i.medicine_id, i.batch_id, i.quantity, i.unit_price, i.subtotal
		FROM sale_order_items i ` + where + `
		ORDER BY i.order_id, i.line_no`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list sale order items", err)
	}
	defer rows.Close()
	out := make(map[string][]entity.SaleOrderItem)
	for rows.Next() {
		var orderID string
		var it entity.SaleOrderItem
		if err := rows.Scan(&orderID, &it.MedicineID, &it.BatchID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sale order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}
