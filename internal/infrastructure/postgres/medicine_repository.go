package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

var _ repository.MedicineRepository = (*MedicineRepo)(nil)

const medicineColumns = `id, name, sku, unit, usage, category, description, manufacturer, min_stock_level,
	is_active, sell_price, cost_price, box_to_blister, blister_to_unit, created_at, updated_at`

// MedicineRepo implementación del catálogo sobre PostgreSQL (usable con pool o tx).
type MedicineRepo struct {
	q Querier
}

// NewMedicineRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMedicineRepository(q Querier) *MedicineRepo {
	return &MedicineRepo{q: q}
}

func scanMedicine(row pgx.Row) (*entity.Medicine, error) {
	var m entity.Medicine
	err := row.Scan(
		&m.ID, &m.Name, &m.SKU, &m.Unit, &m.Usage, &m.Category, &m.Description, &m.Manufacturer,
		&m.MinStockLevel, &m.IsActive, &m.SellPrice, &m.CostPrice,
		&m.Packaging.BoxToBlister, &m.Packaging.BlisterToUnit, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create persiste un medicamento. SKU duplicado -> domain.ErrDuplicate.
func (r *MedicineRepo) Create(ctx context.Context, m *entity.Medicine) error {
	query := `
		INSERT INTO medicines (` + medicineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Name, m.SKU, m.Unit, m.Usage, m.Category, m.Description, m.Manufacturer,
		m.MinStockLevel, m.IsActive, m.SellPrice, m.CostPrice,
		m.Packaging.BoxToBlister, m.Packaging.BlisterToUnit, m.CreatedAt, m.UpdatedAt,
	)
	return wrap("insert medicine", err)
}

// GetByID obtiene un medicamento por ID.
func (r *MedicineRepo) GetByID(ctx context.Context, id string) (*entity.Medicine, error) {
	m, err := scanMedicine(r.q.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("get medicine", err)
	}
	return m, nil
}

// GetBySKU obtiene un medicamento por su código.
func (r *MedicineRepo) GetBySKU(ctx context.Context, sku string) (*entity.Medicine, error) {
	m, err := scanMedicine(r.q.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE sku = $1`, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("get medicine by sku", err)
	}
	return m, nil
}

// Update reescribe los campos editables del medicamento.
func (r *MedicineRepo) Update(ctx context.Context, m *entity.Medicine) error {
	query := `
		UPDATE medicines SET name = $2, sku = $3, unit = $4, usage = $5, category = $6, description = $7,
			manufacturer = $8, min_stock_level = $9, is_active = $10, sell_price = $11, cost_price = $12,
			box_to_blister = $13, blister_to_unit = $14, updated_at = $15
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		m.ID, m.Name, m.SKU, m.Unit, m.Usage, m.Category, m.Description, m.Manufacturer,
		m.MinStockLevel, m.IsActive, m.SellPrice, m.CostPrice,
		m.Packaging.BoxToBlister, m.Packaging.BlisterToUnit, m.UpdatedAt,
	)
	if err != nil {
		return wrap("update medicine", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List catálogo ordenado por nombre. Limit 0 = sin límite.
func (r *MedicineRepo) List(ctx context.Context, f repository.MedicineFilter) ([]*entity.Medicine, error) {
	query := `
		SELECT ` + medicineColumns + `
		FROM medicines
		WHERE ($1::boolean = false OR is_active)
		  AND ($2::text = '' OR lower(category) = lower($2::text))
		ORDER BY name, id
		LIMIT NULLIF($3::int, 0) OFFSET $4`
	rows, err := r.q.Query(ctx, query, f.ActiveOnly, f.Category, f.Limit, f.Offset)
	if err != nil {
		return nil, wrap("list medicines", err)
	}
	defer rows.Close()
	var list []*entity.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// HasReferences indica si hay lotes o líneas de venta del medicamento.
func (r *MedicineRepo) HasReferences(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM inventory_batches WHERE medicine_id = $1)
		    OR EXISTS (SELECT 1 FROM sale_order_items WHERE medicine_id = $1)`
	var used bool
	if err := r.q.QueryRow(ctx, query, id).Scan(&used); err != nil {
		return false, wrap("medicine references", err)
	}
	return used, nil
}

// Delete elimina un medicamento sin referencias.
func (r *MedicineRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrMedicineInUse
		}
		return wrap("delete medicine", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
