package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryBatch representa un lote recibido de un medicamento.
// Invariante: 0 <= CurrentQuantity <= OriginalQuantity. Un lote con CurrentQuantity == 0
// queda inactivo para asignación pero se conserva para auditoría.
type InventoryBatch struct {
	ID               string
	MedicineID       string
	BatchNumber      string
	ExpiryDate       time.Time
	ImportDate       time.Time
	CostPrice        decimal.Decimal // costo unitario al momento de la recepción
	OriginalQuantity int64
	CurrentQuantity  int64
	Supplier         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available indica si el lote puede usarse en una asignación.
func (b *InventoryBatch) Available() bool { return b.CurrentQuantity > 0 }

// ExpiredAt indica si el lote está vencido en la fecha dada (se compara por día).
func (b *InventoryBatch) ExpiredAt(now time.Time) bool {
	return DaysUntil(b.ExpiryDate, now) < 0
}

// DaysUntil días calendario entre la fecha local de now y la fecha de t (negativo si t ya pasó).
// t es una fecha sin hora (vencimiento), por eso se toma su fecha tal cual.
func DaysUntil(t, now time.Time) int {
	return int(CalendarDate(t).Sub(CalendarDate(now)).Hours() / 24)
}

// CalendarDate fecha de t en su propia zona, representada como medianoche UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
