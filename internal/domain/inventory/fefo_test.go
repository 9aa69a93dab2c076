package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/inventory"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func batch(id, expiry string, qty int64) *entity.InventoryBatch {
	return &entity.InventoryBatch{ID: id, MedicineID: "M", ExpiryDate: day(expiry), OriginalQuantity: qty, CurrentQuantity: qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// PlanFEFO
// ──────────────────────────────────────────────────────────────────────────────

func TestPlanFEFO_PartirEntreDosLotes(t *testing.T) {
	batches := []*entity.InventoryBatch{
		batch("B2", "2024-06-01", 10),
		batch("B1", "2024-01-01", 5),
	}

	draws, available, ok := inventory.PlanFEFO(batches, 7)
	require.True(t, ok)
	assert.Equal(t, int64(15), available)
	require.Len(t, draws, 2)
	assert.Equal(t, inventory.BatchDraw{BatchID: "B1", Expected: 5, Quantity: 5}, draws[0])
	assert.Equal(t, inventory.BatchDraw{BatchID: "B2", Expected: 10, Quantity: 2}, draws[1])

	// la entrada no se reordena ni se modifica
	assert.Equal(t, "B2", batches[0].ID)
	assert.Equal(t, int64(5), batches[1].CurrentQuantity)
}

func TestPlanFEFO_InsuficienteNoDevuelveDraws(t *testing.T) {
	batches := []*entity.InventoryBatch{
		batch("B1", "2024-01-01", 5),
		batch("B2", "2024-06-01", 10),
	}
	draws, available, ok := inventory.PlanFEFO(batches, 20)
	assert.False(t, ok)
	assert.Nil(t, draws)
	assert.Equal(t, int64(15), available)
}

func TestPlanFEFO_IgnoraLotesAgotados(t *testing.T) {
	batches := []*entity.InventoryBatch{
		batch("B0", "2023-01-01", 0),
		batch("B1", "2024-01-01", 3),
	}
	draws, _, ok := inventory.PlanFEFO(batches, 2)
	require.True(t, ok)
	require.Len(t, draws, 1)
	assert.Equal(t, "B1", draws[0].BatchID)
}

func TestPlanFEFO_EmpateDeVencimientoPorID(t *testing.T) {
	batches := []*entity.InventoryBatch{
		batch("B9", "2024-03-01", 4),
		batch("B3", "2024-03-01", 4),
	}
	draws, _, ok := inventory.PlanFEFO(batches, 5)
	require.True(t, ok)
	require.Len(t, draws, 2)
	assert.Equal(t, "B3", draws[0].BatchID)
	assert.Equal(t, int64(4), draws[0].Quantity)
	assert.Equal(t, "B9", draws[1].BatchID)
	assert.Equal(t, int64(1), draws[1].Quantity)
}

func TestPlanFEFO_CantidadNoPositiva(t *testing.T) {
	_, _, ok := inventory.PlanFEFO([]*entity.InventoryBatch{batch("B1", "2024-01-01", 3)}, 0)
	assert.False(t, ok)
}

// Propiedades: conservación, orden FEFO y nunca más de lo que tiene el lote.
func TestPlanFEFO_Propiedades(t *testing.T) {
	batches := []*entity.InventoryBatch{
		batch("A", "2025-05-01", 7),
		batch("B", "2024-12-01", 1),
		batch("C", "2025-01-15", 4),
		batch("D", "2026-02-01", 9),
	}
	byID := map[string]*entity.InventoryBatch{}
	for _, b := range batches {
		byID[b.ID] = b
	}

	for requested := int64(1); requested <= 21; requested++ {
		draws, available, ok := inventory.PlanFEFO(batches, requested)
		require.True(t, ok, "requested=%d", requested)
		require.Equal(t, int64(21), available)

		var sum int64
		for i, d := range draws {
			b := byID[d.BatchID]
			assert.LessOrEqual(t, d.Quantity, b.CurrentQuantity)
			assert.Positive(t, d.Quantity)
			sum += d.Quantity
			if i < len(draws)-1 {
				// todo lote anterior al último se agota por completo
				assert.Equal(t, b.CurrentQuantity, d.Quantity)
				assert.True(t, !byID[draws[i+1].BatchID].ExpiryDate.Before(b.ExpiryDate))
			}
		}
		assert.Equal(t, requested, sum)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// WeightedAverageCost
// ──────────────────────────────────────────────────────────────────────────────

func TestWeightedAverageCost(t *testing.T) {
	got := inventory.WeightedAverageCost(10, decimal.NewFromInt(1000), 5, decimal.NewFromInt(1300))
	assert.True(t, got.Equal(decimal.NewFromInt(1100)), got.String())

	assert.True(t, inventory.WeightedAverageCost(0, decimal.Zero, 0, decimal.NewFromInt(5)).IsZero())
	assert.True(t, inventory.WeightedAverageCost(0, decimal.Zero, 4, decimal.NewFromInt(250)).Equal(decimal.NewFromInt(250)))
}
