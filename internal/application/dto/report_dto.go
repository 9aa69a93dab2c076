package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyRevenueReport ingresos de farmacia de un día local.
type DailyRevenueReport struct {
	Date         string                     `json:"date"`
	Timezone     string                     `json:"timezone"`
	OrderCount   int                        `json:"order_count"`
	TotalRevenue decimal.Decimal            `json:"total_revenue"`
	BySource     map[string]decimal.Decimal `json:"by_source"`
	ByMedicine   []MedicineRevenueLine      `json:"by_medicine"`
	Transactions []RevenueTransaction       `json:"transactions"`
}

// MedicineRevenueLine cantidad e importe vendidos de un medicamento en el día.
type MedicineRevenueLine struct {
	MedicineID string          `json:"medicine_id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Quantity   int64           `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
}

// RevenueTransaction resumen de una orden del día.
type RevenueTransaction struct {
	SaleID      string          `json:"sale_id"`
	CreatedAt   time.Time       `json:"created_at"`
	PatientName string          `json:"patient_name"`
	SaleSource  string          `json:"sale_source"`
	Total       decimal.Decimal `json:"total"`
}
