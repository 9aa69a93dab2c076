package repository

import (
	"context"

	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

// MedicineFilter filtros para listar el catálogo.
type MedicineFilter struct {
	ActiveOnly bool
	Category   string
	Limit      int
	Offset     int
}

// MedicineRepository define el puerto de persistencia para el catálogo de medicamentos.
type MedicineRepository interface {
	Create(ctx context.Context, medicine *entity.Medicine) error
	GetByID(ctx context.Context, id string) (*entity.Medicine, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Medicine, error)
	Update(ctx context.Context, medicine *entity.Medicine) error
	List(ctx context.Context, filter MedicineFilter) ([]*entity.Medicine, error)
	// HasReferences indica si existen lotes u órdenes que apunten al medicamento.
	HasReferences(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}
