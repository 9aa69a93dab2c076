package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Clinica-api/internal/application/auth"
	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/inventory"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

// DefaultWalkInName nombre mostrado cuando la venta no tiene paciente ni nombre.
const DefaultWalkInName = "Cliente de mostrador"

// CheckoutUseCase registra una venta de farmacia descontando stock por lotes en orden FEFO.
// Toda la operación (lectura de lotes, descuentos condicionales, movimientos y orden) ocurre
// en una sola transacción; ante conflicto con otro escritor se repite completa.
type CheckoutUseCase struct {
	txRunner     TxRunner
	medicineRepo repository.MedicineRepository
	publisher    ports.EventPublisher
	retry        RetryConfig
	logger       zerolog.Logger
	now          func() time.Time
}

// NewCheckoutUseCase construye el caso de uso. publisher puede ser nil.
func NewCheckoutUseCase(
	txRunner TxRunner,
	medicineRepo repository.MedicineRepository,
	publisher ports.EventPublisher,
	retry RetryConfig,
	logger zerolog.Logger,
) *CheckoutUseCase {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &CheckoutUseCase{
		txRunner:     txRunner,
		medicineRepo: medicineRepo,
		publisher:    publisher,
		retry:        retry,
		logger:       logger,
		now:          time.Now,
	}
}

// cartLine solicitud ya consolidada por medicamento.
type cartLine struct {
	medicine  *entity.Medicine
	quantity  int64
	unitPrice decimal.Decimal
}

// Checkout asigna el carrito a lotes y crea la orden de venta.
// Errores: domain.ErrInvalidInput, *domain.UnknownMedicineError, domain.ErrMedicineInactive,
// *domain.InsufficientStockError y domain.ErrTransientStorageConflict.
func (uc *CheckoutUseCase) Checkout(ctx context.Context, sess auth.Session, in dto.CheckoutRequest) (*dto.SaleOrderResponse, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: el carrito está vacío", domain.ErrInvalidInput)
	}
	if in.SaleSource != "" && !entity.ValidSaleSource(in.SaleSource) {
		return nil, fmt.Errorf("%w: origen de venta %q", domain.ErrInvalidInput, in.SaleSource)
	}
	merged, err := mergeCart(in.Items)
	if err != nil {
		return nil, err
	}

	// Resolver catálogo antes de abrir la transacción
	lines := make([]cartLine, 0, len(merged))
	for _, it := range merged {
		med, err := uc.medicineRepo.GetByID(ctx, it.MedicineID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.UnknownMedicineError{MedicineID: it.MedicineID}
			}
			return nil, err
		}
		if !med.IsActive {
			return nil, fmt.Errorf("%w: %s", domain.ErrMedicineInactive, med.Name)
		}
		price := med.SellPrice
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: precio negativo para %s", domain.ErrInvalidInput, med.Name)
		}
		lines = append(lines, cartLine{medicine: med, quantity: it.Quantity, unitPrice: price})
	}

	header := uc.newOrderHeader(sess, in)

	var order *entity.SaleOrder
	err = withConflictRetry(ctx, uc.retry, uc.logger, "checkout", func(attempt int) error {
		candidate := *header
		candidate.Items = nil
		err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
			return uc.allocate(ctx, repos, &candidate, lines)
		})
		if err != nil {
			return err
		}
		order = &candidate
		return nil
	})
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			uc.logger.Info().Str("medicine_id", insufficient.MedicineID).
				Int64("requested", insufficient.Requested).Int64("available", insufficient.Available).
				Msg("venta rechazada por stock insuficiente")
		}
		return nil, err
	}

	uc.logger.Info().Str("sale_id", order.ID).Int("items", len(order.Items)).
		Str("total", order.TotalAmount.String()).Msg("venta registrada")
	uc.publishSale(ctx, order)
	return toSaleOrderResponse(order), nil
}

func (uc *CheckoutUseCase) newOrderHeader(sess auth.Session, in dto.CheckoutRequest) *entity.SaleOrder {
	var patientID *string
	if id := strings.TrimSpace(in.PatientID); id != "" {
		patientID = &id
	}
	source := in.SaleSource
	if source == "" {
		source = entity.SaleSourceWalkIn
		if patientID != nil {
			source = entity.SaleSourceClinic
		}
	}
	name := strings.TrimSpace(in.PatientName)
	if name == "" {
		name = DefaultWalkInName
	}
	return &entity.SaleOrder{
		ID:          uuid.New().String(),
		CreatedAt:   uc.now(),
		PatientID:   patientID,
		PatientName: name,
		Status:      entity.SaleStatusCompleted,
		CreatedBy:   sess.UserID,
		SaleSource:  source,
	}
}

// allocate corre dentro de la transacción: cualquier error provoca Rollback de todo el carrito.
func (uc *CheckoutUseCase) allocate(ctx context.Context, repos TxRepos, order *entity.SaleOrder, lines []cartLine) error {
	total := decimal.Zero
	for _, line := range lines {
		batches, err := repos.Batches.ListAvailableByMedicine(ctx, line.medicine.ID)
		if err != nil {
			return err
		}
		draws, available, ok := inventory.PlanFEFO(batches, line.quantity)
		if !ok {
			return &domain.InsufficientStockError{
				MedicineID:   line.medicine.ID,
				MedicineName: line.medicine.Name,
				Requested:    line.quantity,
				Available:    available,
			}
		}
		costs := make(map[string]decimal.Decimal, len(batches))
		for _, b := range batches {
			costs[b.ID] = b.CostPrice
		}

		for _, d := range draws {
			if err := repos.Batches.DecrementQuantity(ctx, d.BatchID, d.Expected, d.Quantity); err != nil {
				return err
			}
			qty := decimal.NewFromInt(d.Quantity)
			subtotal := line.unitPrice.Mul(qty)
			order.Items = append(order.Items, entity.SaleOrderItem{
				MedicineID: line.medicine.ID,
				BatchID:    d.BatchID,
				Quantity:   d.Quantity,
				UnitPrice:  line.unitPrice,
				Subtotal:   subtotal,
			})
			total = total.Add(subtotal)

			unitCost := costs[d.BatchID]
			if err := repos.Movements.Create(ctx, &entity.InventoryMovement{
				ID:            uuid.New().String(),
				TransactionID: order.ID,
				MedicineID:    line.medicine.ID,
				BatchID:       d.BatchID,
				Type:          entity.MovementTypeOUT,
				Quantity:      -d.Quantity,
				UnitCost:      unitCost,
				TotalCost:     unitCost.Mul(qty),
				Reason:        "venta",
				CreatedAt:     order.CreatedAt,
				CreatedBy:     order.CreatedBy,
			}); err != nil {
				return err
			}
		}
	}
	order.TotalAmount = total
	return repos.Orders.Create(ctx, order)
}

func (uc *CheckoutUseCase) publishSale(ctx context.Context, order *entity.SaleOrder) {
	at := uc.now()
	medicines := make([]string, 0)
	seen := map[string]bool{}
	batches := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		batches = append(batches, it.BatchID)
		if !seen[it.MedicineID] {
			seen[it.MedicineID] = true
			medicines = append(medicines, it.MedicineID)
		}
	}
	publish(ctx, uc.publisher, uc.logger, ports.ChangeEvent{
		List:       ports.ListSales,
		Type:       ports.EventSaleCreated,
		EntityID:   order.ID,
		OccurredAt: at,
		Data: map[string]any{
			"total_amount": order.TotalAmount.String(),
			"sale_source":  order.SaleSource,
			"medicines":    medicines,
		},
	})
	publish(ctx, uc.publisher, uc.logger, ports.ChangeEvent{
		List:       ports.ListBatches,
		Type:       ports.EventBatchesDepleted,
		EntityID:   order.ID,
		OccurredAt: at,
		Data:       map[string]any{"batches": batches},
	})
}

// mergeCart consolida líneas repetidas del mismo medicamento conservando el orden de aparición.
// Si las repetidas traen precios distintos el carrito es inválido.
func mergeCart(items []dto.CheckoutItemRequest) ([]dto.CheckoutItemRequest, error) {
	out := make([]dto.CheckoutItemRequest, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.MedicineID)
		if id == "" {
			return nil, fmt.Errorf("%w: medicine_id requerido", domain.ErrInvalidInput)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: cantidad debe ser positiva para %s", domain.ErrInvalidInput, id)
		}
		if it.UnitPrice != nil && it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: precio negativo para %s", domain.ErrInvalidInput, id)
		}
		it.MedicineID = id
		i, dup := index[id]
		if !dup {
			index[id] = len(out)
			out = append(out, it)
			continue
		}
		prev := out[i]
		if !samePrice(prev.UnitPrice, it.UnitPrice) {
			return nil, fmt.Errorf("%w: precios distintos para el mismo medicamento %s", domain.ErrInvalidInput, id)
		}
		prev.Quantity += it.Quantity
		out[i] = prev
	}
	return out, nil
}

func samePrice(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// publish envía el evento y solo registra el fallo: la transacción ya está confirmada.
func publish(ctx context.Context, p ports.EventPublisher, logger zerolog.Logger, evt ports.ChangeEvent) {
	if err := p.Publish(ctx, evt); err != nil {
		logger.Error().Err(err).Str("list", evt.List).Str("type", evt.Type).Str("entity_id", evt.EntityID).
			Msg("no se pudo publicar evento de cambio")
	}
}
