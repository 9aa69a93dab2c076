package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Packaging relación de empaque opcional: hoja (blíster) por caja y unidades por hoja.
// Un valor cero significa "no definido" y se interpreta como 1.
type Packaging struct {
	BoxToBlister  int64
	BlisterToUnit int64
}

// UnitsPerBox unidades de venta contenidas en una caja (mínimo 1).
func (p Packaging) UnitsPerBox() int64 {
	boxes, units := p.BoxToBlister, p.BlisterToUnit
	if boxes <= 0 {
		boxes = 1
	}
	if units <= 0 {
		units = 1
	}
	return boxes * units
}

// Medicine representa un medicamento o producto vendible del catálogo de farmacia.
// No se elimina si tiene lotes u órdenes históricas; se desactiva con IsActive=false.
type Medicine struct {
	ID            string
	Name          string
	SKU           string // código único en el catálogo
	Unit          string // unidad de venta: viên, hộp, tablet, box...
	Usage         string // indicaciones de uso por defecto
	Category      string
	Description   string
	Manufacturer  string
	MinStockLevel int64 // umbral de alerta de stock bajo (0 = sin alerta)
	IsActive      bool
	SellPrice     decimal.Decimal
	CostPrice     decimal.Decimal
	Packaging     Packaging
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UnitPriceFromBox convierte un precio por caja a precio por unidad de venta, redondeado a unidades enteras.
func (m *Medicine) UnitPriceFromBox(boxPrice decimal.Decimal) decimal.Decimal {
	ratio := decimal.NewFromInt(m.Packaging.UnitsPerBox())
	return boxPrice.Div(ratio).Round(0)
}
