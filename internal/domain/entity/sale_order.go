package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de venta.
const (
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

// Origen de la venta.
const (
	SaleSourceWalkIn = "walk_in" // cliente de mostrador
	SaleSourceClinic = "clinic"  // vinculada a una consulta de la clínica
	SaleSourceOnline = "online"
)

// ValidSaleSource indica si s es un origen de venta conocido.
func ValidSaleSource(s string) bool {
	switch s {
	case SaleSourceWalkIn, SaleSourceClinic, SaleSourceOnline:
		return true
	}
	return false
}

// SaleOrder representa una venta completada de farmacia. Inmutable tras su creación
// salvo la transición de estado a cancelled.
type SaleOrder struct {
	ID          string
	CreatedAt   time.Time
	PatientID   *string // nil para clientes de mostrador
	PatientName string
	Items       []SaleOrderItem
	TotalAmount decimal.Decimal
	Status      string
	CreatedBy   string
	SaleSource  string
}

// SaleOrderItem línea de la orden: cada línea sale de exactamente un lote.
type SaleOrderItem struct {
	MedicineID string
	BatchID    string
	Quantity   int64
	UnitPrice  decimal.Decimal // precio de venta al momento de la venta
	Subtotal   decimal.Decimal
}

// QuantityByMedicine suma las cantidades de las líneas agrupadas por medicamento.
func (o *SaleOrder) QuantityByMedicine() map[string]int64 {
	out := make(map[string]int64)
	for _, it := range o.Items {
		out[it.MedicineID] += it.Quantity
	}
	return out
}
