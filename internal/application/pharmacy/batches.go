package pharmacy

import (
	"context"
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

const dateLayout = "2006-01-02"

// BatchUseCase recepción de mercancía, consulta de lotes y ajustes correctivos.
type BatchUseCase struct {
	txRunner     TxRunner
	medicineRepo repository.MedicineRepository
	batchRepo    repository.BatchRepository
	publisher    ports.EventPublisher
	retry        RetryConfig
	logger       zerolog.Logger
	loc          *time.Location
	now          func() time.Time
}

// NewBatchUseCase construye el caso de uso. loc es la zona horaria de la clínica (nil = UTC).
func NewBatchUseCase(
	txRunner TxRunner,
	medicineRepo repository.MedicineRepository,
	batchRepo repository.BatchRepository,
	publisher ports.EventPublisher,
	retry RetryConfig,
	loc *time.Location,
	logger zerolog.Logger,
) *BatchUseCase {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BatchUseCase{
		txRunner:     txRunner,
		medicineRepo: medicineRepo,
		batchRepo:    batchRepo,
		publisher:    publisher,
		retry:        retry,
		logger:       logger,
		loc:          loc,
		now:          time.Now,
	}
}

// Receive registra un lote nuevo (CurrentQuantity = OriginalQuantity), su movimiento IN y
// recalcula el costo promedio ponderado del medicamento, todo en una transacción.
func (uc *BatchUseCase) Receive(ctx context.Context, sess auth.Session, in dto.ReceiveBatchRequest) (*dto.BatchResponse, error) {
	if in.Quantity <= 0 || strings.TrimSpace(in.BatchNumber) == "" || in.CostPrice.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	expiry, err := time.Parse(dateLayout, in.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("%w: expiry_date %q", domain.ErrInvalidInput, in.ExpiryDate)
	}
	now := uc.now()
	y, m, d := now.In(uc.loc).Date()
	importDate := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if in.ImportDate != "" {
		if importDate, err = time.Parse(dateLayout, in.ImportDate); err != nil {
			return nil, fmt.Errorf("%w: import_date %q", domain.ErrInvalidInput, in.ImportDate)
		}
	}
	if _, err := uc.medicineRepo.GetByID(ctx, in.MedicineID); err != nil {
		return nil, err
	}

	batch := &entity.InventoryBatch{
		ID:               uuid.New().String(),
		MedicineID:       in.MedicineID,
		BatchNumber:      strings.TrimSpace(in.BatchNumber),
		ExpiryDate:       expiry,
		ImportDate:       importDate,
		CostPrice:        in.CostPrice,
		OriginalQuantity: in.Quantity,
		CurrentQuantity:  in.Quantity,
		Supplier:         strings.TrimSpace(in.Supplier),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = withConflictRetry(ctx, uc.retry, uc.logger, "receive_batch", func(int) error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			med, err := repos.Medicines.GetByID(ctx, batch.MedicineID)
			if err != nil {
				return err
			}
			existing, err := repos.Batches.ListAvailableByMedicine(ctx, batch.MedicineID)
			if err != nil {
				return err
			}
			var onHand int64
			for _, b := range existing {
				onHand += b.CurrentQuantity
			}
			if err := repos.Batches.Create(ctx, batch); err != nil {
				return err
			}
			if err := repos.Movements.Create(ctx, &entity.InventoryMovement{
				ID:            uuid.New().String(),
				TransactionID: batch.ID,
				MedicineID:    batch.MedicineID,
				BatchID:       batch.ID,
				Type:          entity.MovementTypeIN,
				Quantity:      batch.OriginalQuantity,
				UnitCost:      batch.CostPrice,
				TotalCost:     batch.CostPrice.Mul(decimal.NewFromInt(batch.OriginalQuantity)),
				Reason:        "recepción",
				CreatedAt:     now,
				CreatedBy:     sess.UserID,
			}); err != nil {
				return err
			}
			med.CostPrice = inventory.WeightedAverageCost(onHand, med.CostPrice, batch.OriginalQuantity, batch.CostPrice)
			med.UpdatedAt = now
			return repos.Medicines.Update(ctx, med)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info().Str("batch_id", batch.ID).Str("medicine_id", batch.MedicineID).
		Int64("quantity", batch.OriginalQuantity).Msg("lote recibido")
	publish(ctx, uc.publisher, uc.logger, ports.ChangeEvent{
		List:       ports.ListBatches,
		Type:       ports.EventBatchReceived,
		EntityID:   batch.ID,
		OccurredAt: uc.now(),
		Data: map[string]any{
			"medicine_id": batch.MedicineID,
			"quantity":    batch.OriginalQuantity,
			"expiry_date": batch.ExpiryDate.Format(dateLayout),
		},
	})
	out := toBatchResponse(batch)
	return &out, nil
}

// List lotes de un medicamento ordenados por vencimiento ascendente.
func (uc *BatchUseCase) List(ctx context.Context, medicineID string, includeDepleted bool) ([]dto.BatchResponse, error) {
	if _, err := uc.medicineRepo.GetByID(ctx, medicineID); err != nil {
		return nil, err
	}
	batches, err := uc.batchRepo.ListByMedicine(ctx, medicineID, includeDepleted)
	if err != nil {
		return nil, err
	}
	inventory.SortFEFO(batches)
	out := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, toBatchResponse(b))
	}
	return out, nil
}

// TotalStock suma de CurrentQuantity de los lotes del medicamento.
func (uc *BatchUseCase) TotalStock(ctx context.Context, medicineID string) (*dto.StockResponse, error) {
	if _, err := uc.medicineRepo.GetByID(ctx, medicineID); err != nil {
		return nil, err
	}
	batches, err := uc.batchRepo.ListAvailableByMedicine(ctx, medicineID)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, b := range batches {
		total += b.CurrentQuantity
	}
	return &dto.StockResponse{MedicineID: medicineID, TotalStock: total}, nil
}

// Adjust retira unidades de un lote (merma, baja, corrección de conteo). Nunca aumenta ni deja
// el lote por debajo de cero; usa el mismo descuento condicional y reintento que la venta.
func (uc *BatchUseCase) Adjust(ctx context.Context, sess auth.Session, batchID string, in dto.AdjustBatchRequest) (*dto.BatchResponse, error) {
	if in.Quantity <= 0 || strings.TrimSpace(in.Reason) == "" {
		return nil, domain.ErrInvalidInput
	}
	var adjusted *entity.InventoryBatch
	err := withConflictRetry(ctx, uc.retry, uc.logger, "adjust_batch", func(int) error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			b, err := repos.Batches.GetByID(ctx, batchID)
			if err != nil {
				return err
			}
			if in.Quantity > b.CurrentQuantity {
				return &domain.InsufficientStockError{
					MedicineID: b.MedicineID,
					Requested:  in.Quantity,
					Available:  b.CurrentQuantity,
				}
			}
			if err := repos.Batches.DecrementQuantity(ctx, b.ID, b.CurrentQuantity, in.Quantity); err != nil {
				return err
			}
			now := uc.now()
			if err := repos.Movements.Create(ctx, &entity.InventoryMovement{
				ID:            uuid.New().String(),
				TransactionID: uuid.New().String(),
				MedicineID:    b.MedicineID,
				BatchID:       b.ID,
				Type:          entity.MovementTypeADJUSTMENT,
				Quantity:      -in.Quantity,
				UnitCost:      b.CostPrice,
				TotalCost:     b.CostPrice.Mul(decimal.NewFromInt(in.Quantity)),
				Reason:        strings.TrimSpace(in.Reason),
				CreatedAt:     now,
				CreatedBy:     sess.UserID,
			}); err != nil {
				return err
			}
			b.CurrentQuantity -= in.Quantity
			b.UpdatedAt = now
			adjusted = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info().Str("batch_id", adjusted.ID).Int64("quantity", in.Quantity).
		Str("reason", in.Reason).Msg("ajuste de lote")
	publish(ctx, uc.publisher, uc.logger, ports.ChangeEvent{
		List:       ports.ListBatches,
		Type:       ports.EventBatchAdjusted,
		EntityID:   adjusted.ID,
		OccurredAt: uc.now(),
		Data: map[string]any{
			"medicine_id":      adjusted.MedicineID,
			"removed":          in.Quantity,
			"current_quantity": adjusted.CurrentQuantity,
		},
	})
	out := toBatchResponse(adjusted)
	return &out, nil
}
