package pharmacy

import (
	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

func toSaleOrderResponse(o *entity.SaleOrder) *dto.SaleOrderResponse {
	items := make([]dto.SaleOrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.SaleOrderItemResponse{
			MedicineID: it.MedicineID,
			BatchID:    it.BatchID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			Subtotal:   it.Subtotal,
		})
	}
	return &dto.SaleOrderResponse{
		ID:          o.ID,
		CreatedAt:   o.CreatedAt,
		PatientID:   o.PatientID,
		PatientName: o.PatientName,
		Items:       items,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedBy:   o.CreatedBy,
		SaleSource:  o.SaleSource,
	}
}

func toMedicineResponse(m *entity.Medicine) dto.MedicineResponse {
	return dto.MedicineResponse{
		ID:            m.ID,
		Name:          m.Name,
		SKU:           m.SKU,
		Unit:          m.Unit,
		Usage:         m.Usage,
		Category:      m.Category,
		Description:   m.Description,
		Manufacturer:  m.Manufacturer,
		MinStockLevel: m.MinStockLevel,
		IsActive:      m.IsActive,
		SellPrice:     m.SellPrice,
		CostPrice:     m.CostPrice,
		BoxToBlister:  m.Packaging.BoxToBlister,
		BlisterToUnit: m.Packaging.BlisterToUnit,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toBatchResponse(b *entity.InventoryBatch) dto.BatchResponse {
	return dto.BatchResponse{
		ID:               b.ID,
		MedicineID:       b.MedicineID,
		BatchNumber:      b.BatchNumber,
		ExpiryDate:       b.ExpiryDate,
		ImportDate:       b.ImportDate,
		CostPrice:        b.CostPrice,
		OriginalQuantity: b.OriginalQuantity,
		CurrentQuantity:  b.CurrentQuantity,
		Supplier:         b.Supplier,
		CreatedAt:        b.CreatedAt,
	}
}
