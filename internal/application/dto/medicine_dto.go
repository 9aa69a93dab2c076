package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateMedicineRequest body para POST /api/medicines.
type CreateMedicineRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	SKU           string          `json:"sku" validate:"required,min=1,max=64"`
	Unit          string          `json:"unit" validate:"required,max=32"`
	Usage         string          `json:"usage,omitempty" validate:"omitempty,max=500"`
	Category      string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Description   string          `json:"description,omitempty"`
	Manufacturer  string          `json:"manufacturer,omitempty" validate:"omitempty,max=200"`
	MinStockLevel int64           `json:"min_stock_level" validate:"min=0"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	BoxToBlister  int64           `json:"box_to_blister,omitempty" validate:"min=0"`
	BlisterToUnit int64           `json:"blister_to_unit,omitempty" validate:"min=0"`
	// BoxPrice precio por caja; si viene, sell_price se calcula por unidad según el empaque.
	BoxPrice *decimal.Decimal `json:"box_price,omitempty"`
}

// UpdateMedicineRequest body para PUT /api/medicines/:id (campos opcionales).
type UpdateMedicineRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Unit          *string          `json:"unit,omitempty" validate:"omitempty,max=32"`
	Usage         *string          `json:"usage,omitempty" validate:"omitempty,max=500"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Description   *string          `json:"description,omitempty"`
	Manufacturer  *string          `json:"manufacturer,omitempty" validate:"omitempty,max=200"`
	MinStockLevel *int64           `json:"min_stock_level,omitempty" validate:"omitempty,min=0"`
	SellPrice     *decimal.Decimal `json:"sell_price,omitempty"`
	CostPrice     *decimal.Decimal `json:"cost_price,omitempty"`
	BoxToBlister  *int64           `json:"box_to_blister,omitempty" validate:"omitempty,min=0"`
	BlisterToUnit *int64           `json:"blister_to_unit,omitempty" validate:"omitempty,min=0"`
	BoxPrice      *decimal.Decimal `json:"box_price,omitempty"`
}

// MedicineQuery filtros de GET /api/medicines.
type MedicineQuery struct {
	PageRequest
	Category        string `query:"category"`
	IncludeInactive bool   `query:"include_inactive"`
}

// MedicineResponse medicamento en respuestas.
type MedicineResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Unit          string          `json:"unit"`
	Usage         string          `json:"usage,omitempty"`
	Category      string          `json:"category,omitempty"`
	Description   string          `json:"description,omitempty"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	MinStockLevel int64           `json:"min_stock_level"`
	IsActive      bool            `json:"is_active"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	BoxToBlister  int64           `json:"box_to_blister,omitempty"`
	BlisterToUnit int64           `json:"blister_to_unit,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MedicineListResponse listado paginado.
type MedicineListResponse struct {
	Items []MedicineResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ImportSummary resultado de la importación masiva por CSV.
type ImportSummary struct {
	Created int           `json:"created"`
	Skipped []ImportIssue `json:"skipped,omitempty"`
	Failed  []ImportIssue `json:"failed,omitempty"`
}

// ImportIssue fila omitida o rechazada (Line es 1-based, incluye la cabecera).
type ImportIssue struct {
	Line   int    `json:"line"`
	SKU    string `json:"sku,omitempty"`
	Reason string `json:"reason"`
}

// StockResponse stock total de un medicamento.
type StockResponse struct {
	MedicineID string `json:"medicine_id"`
	TotalStock int64  `json:"total_stock"`
}
