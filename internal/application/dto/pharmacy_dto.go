package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutRequest body para POST /api/pharmacy/checkout.
// PatientID vacío indica cliente de mostrador.
type CheckoutRequest struct {
	PatientID   string                `json:"patient_id,omitempty" validate:"omitempty,max=64"`
	PatientName string                `json:"patient_name,omitempty" validate:"omitempty,max=200"`
	SaleSource  string                `json:"sale_source,omitempty" validate:"omitempty,oneof=walk_in clinic online"`
	Items       []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CheckoutItemRequest línea del carrito. UnitPrice nil toma el precio de venta del catálogo.
type CheckoutItemRequest struct {
	MedicineID string           `json:"medicine_id" validate:"required"`
	Quantity   int64            `json:"quantity" validate:"required,gt=0"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
}

// SaleOrderResponse orden de venta con sus líneas por lote.
type SaleOrderResponse struct {
	ID          string                  `json:"id"`
	CreatedAt   time.Time               `json:"created_at"`
	PatientID   *string                 `json:"patient_id,omitempty"`
	PatientName string                  `json:"patient_name"`
	Items       []SaleOrderItemResponse `json:"items"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	Status      string                  `json:"status"`
	CreatedBy   string                  `json:"created_by"`
	SaleSource  string                  `json:"sale_source"`
}

// SaleOrderItemResponse línea de la orden (un lote por línea).
type SaleOrderItemResponse struct {
	MedicineID string          `json:"medicine_id"`
	BatchID    string          `json:"batch_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// SalesQuery filtro de GET /api/pharmacy/sales (fechas YYYY-MM-DD, to inclusivo).
type SalesQuery struct {
	From string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// LowStockAlert medicamento activo por debajo de su stock mínimo.
type LowStockAlert struct {
	MedicineID    string `json:"medicine_id"`
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	TotalStock    int64  `json:"total_stock"`
	MinStockLevel int64  `json:"min_stock_level"`
}

// Niveles de alerta de vencimiento.
const (
	ExpiryLevelExpired  = "expired"
	ExpiryLevelCritical = "critical"
	ExpiryLevelWarning  = "warning"
)

// ExpiryAlert lote con stock que vence (o venció) dentro de la ventana de aviso.
type ExpiryAlert struct {
	BatchID         string    `json:"batch_id"`
	BatchNumber     string    `json:"batch_number"`
	MedicineID      string    `json:"medicine_id"`
	MedicineName    string    `json:"medicine_name"`
	ExpiryDate      time.Time `json:"expiry_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	CurrentQuantity int64     `json:"current_quantity"`
	Level           string    `json:"level"`
}

// InsufficientStockDetails detalle del 409 por stock insuficiente.
type InsufficientStockDetails struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name,omitempty"`
	Requested    int64  `json:"requested"`
	Available    int64  `json:"available"`
}
