package inventory

import (
	"sort"

	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

// BatchDraw cantidad a tomar de un lote concreto.
// Expected es la cantidad leída antes de descontar; se usa para el descuento condicional.
type BatchDraw struct {
	BatchID  string
	Expected int64
	Quantity int64
}

// SortFEFO ordena por vencimiento ascendente y, a igual vencimiento, por ID para que el resultado sea determinista.
func SortFEFO(batches []*entity.InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		return a.ID < b.ID
	})
}

// PlanFEFO reparte requested unidades entre los lotes disponibles, agotando primero el que vence antes.
// Devuelve el total disponible; si no alcanza, draws es nil y ok es false.
// batches no se modifica.
func PlanFEFO(batches []*entity.InventoryBatch, requested int64) (draws []BatchDraw, available int64, ok bool) {
	candidates := make([]*entity.InventoryBatch, 0, len(batches))
	for _, b := range batches {
		if b.CurrentQuantity > 0 {
			candidates = append(candidates, b)
			available += b.CurrentQuantity
		}
	}
	if requested <= 0 || available < requested {
		return nil, available, false
	}
	SortFEFO(candidates)

	remaining := requested
	for _, b := range candidates {
		if remaining == 0 {
			break
		}
		take := min(b.CurrentQuantity, remaining)
		draws = append(draws, BatchDraw{BatchID: b.ID, Expected: b.CurrentQuantity, Quantity: take})
		remaining -= take
	}
	return draws, available, true
}
