package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

// SaleOrderRepository define el puerto de persistencia para órdenes de venta (cabecera + líneas).
type SaleOrderRepository interface {
	Create(ctx context.Context, order *entity.SaleOrder) error
	GetByID(ctx context.Context, id string) (*entity.SaleOrder, error)
	// ListByPeriod órdenes con CreatedAt en [from, to), más recientes primero.
	ListByPeriod(ctx context.Context, from, to time.Time) ([]*entity.SaleOrder, error)
}
