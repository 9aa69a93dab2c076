package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveBatchRequest body para POST /api/batches (recepción de mercancía).
// Fechas en formato YYYY-MM-DD; ImportDate vacío toma la fecha actual.
type ReceiveBatchRequest struct {
	MedicineID  string          `json:"medicine_id" validate:"required"`
	BatchNumber string          `json:"batch_number" validate:"required,max=64"`
	ExpiryDate  string          `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	ImportDate  string          `json:"import_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Quantity    int64           `json:"quantity" validate:"required,gt=0"`
	Supplier    string          `json:"supplier,omitempty" validate:"omitempty,max=200"`
}

// AdjustBatchRequest body para POST /api/batches/:id/adjust. Quantity es lo que se retira.
type AdjustBatchRequest struct {
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required,max=300"`
}

// BatchResponse lote en respuestas.
type BatchResponse struct {
	ID               string          `json:"id"`
	MedicineID       string          `json:"medicine_id"`
	BatchNumber      string          `json:"batch_number"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	ImportDate       time.Time       `json:"import_date"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	OriginalQuantity int64           `json:"original_quantity"`
	CurrentQuantity  int64           `json:"current_quantity"`
	Supplier         string          `json:"supplier,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
