package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario por lote.
const (
	MovementTypeIN         = "IN"         // recepción de mercancía
	MovementTypeOUT        = "OUT"        // venta
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste correctivo (solo disminuye)
)

// InventoryMovement registra cada cambio de cantidad de un lote (kardex).
type InventoryMovement struct {
	ID            string
	TransactionID string // orden de venta o recepción que originó el movimiento
	MedicineID    string
	BatchID       string
	Type          string
	Quantity      int64 // positivo entrada, negativo salida/ajuste
	UnitCost      decimal.Decimal
	TotalCost     decimal.Decimal
	Reason        string
	CreatedAt     time.Time
	CreatedBy     string
}
