package pharmacy

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/internal/domain"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
)

// AlertConfig ventanas de aviso de vencimiento en días.
type AlertConfig struct {
	WarningDays  int
	CriticalDays int
}

// DefaultAlertConfig 90 días de aviso y 30 de alerta crítica.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{WarningDays: 90, CriticalDays: 30}
}

// AlertUseCase calcula alertas de stock bajo y de vencimiento.
type AlertUseCase struct {
	medicineRepo repository.MedicineRepository
	batchRepo    repository.BatchRepository
	publisher    ports.EventPublisher
	cfg          AlertConfig
	loc          *time.Location
	logger       zerolog.Logger
}

// NewAlertUseCase construye el caso de uso.
func NewAlertUseCase(
	medicineRepo repository.MedicineRepository,
	batchRepo repository.BatchRepository,
	publisher ports.EventPublisher,
	cfg AlertConfig,
	loc *time.Location,
	logger zerolog.Logger,
) *AlertUseCase {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if cfg.CriticalDays > cfg.WarningDays {
		cfg.WarningDays = cfg.CriticalDays
	}
	return &AlertUseCase{
		medicineRepo: medicineRepo,
		batchRepo:    batchRepo,
		publisher:    publisher,
		cfg:          cfg,
		loc:          loc,
		logger:       logger,
	}
}

// LowStock medicamentos activos con stock total por debajo de su mínimo, del más crítico al menos.
func (uc *AlertUseCase) LowStock(ctx context.Context) ([]dto.LowStockAlert, error) {
	meds, err := uc.medicineRepo.List(ctx, repository.MedicineFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	totals, err := uc.batchRepo.TotalsByMedicine(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockAlert, 0)
	for _, m := range meds {
		if m.MinStockLevel <= 0 {
			continue
		}
		total := totals[m.ID]
		if total < m.MinStockLevel {
			out = append(out, dto.LowStockAlert{
				MedicineID:    m.ID,
				Name:          m.Name,
				SKU:           m.SKU,
				TotalStock:    total,
				MinStockLevel: m.MinStockLevel,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalStock-out[i].MinStockLevel < out[j].TotalStock-out[j].MinStockLevel
	})
	return out, nil
}

// ExpiryAlerts lotes con stock vencidos o que vencen dentro de la ventana de aviso, por fecha ascendente.
func (uc *AlertUseCase) ExpiryAlerts(ctx context.Context, now time.Time) ([]dto.ExpiryAlert, error) {
	return uc.expiringWithin(ctx, now, uc.cfg.WarningDays)
}

// ExpiringWithin igual que ExpiryAlerts pero con una ventana de days días en lugar de la configurada.
func (uc *AlertUseCase) ExpiringWithin(ctx context.Context, now time.Time, days int) ([]dto.ExpiryAlert, error) {
	if days < 0 {
		return nil, domain.ErrInvalidInput
	}
	return uc.expiringWithin(ctx, now, days)
}

func (uc *AlertUseCase) expiringWithin(ctx context.Context, now time.Time, window int) ([]dto.ExpiryAlert, error) {
	now = now.In(uc.loc)
	horizon := entity.CalendarDate(now).AddDate(0, 0, window+1)
	batches, err := uc.batchRepo.ListExpiringBefore(ctx, horizon)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	out := make([]dto.ExpiryAlert, 0, len(batches))
	for _, b := range batches {
		if b.CurrentQuantity <= 0 {
			continue
		}
		days := entity.DaysUntil(b.ExpiryDate, now)
		level := uc.levelFor(days, window)
		if level == "" {
			continue
		}
		name, ok := names[b.MedicineID]
		if !ok {
			if m, err := uc.medicineRepo.GetByID(ctx, b.MedicineID); err == nil {
				name = m.Name
			}
			names[b.MedicineID] = name
		}
		out = append(out, dto.ExpiryAlert{
			BatchID:         b.ID,
			BatchNumber:     b.BatchNumber,
			MedicineID:      b.MedicineID,
			MedicineName:    name,
			ExpiryDate:      b.ExpiryDate,
			DaysUntilExpiry: days,
			CurrentQuantity: b.CurrentQuantity,
			Level:           level,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysUntilExpiry != out[j].DaysUntilExpiry {
			return out[i].DaysUntilExpiry < out[j].DaysUntilExpiry
		}
		return out[i].BatchID < out[j].BatchID
	})
	return out, nil
}

func (uc *AlertUseCase) levelFor(days, window int) string {
	switch {
	case days < 0:
		return dto.ExpiryLevelExpired
	case days <= uc.cfg.CriticalDays && days <= window:
		return dto.ExpiryLevelCritical
	case days <= window:
		return dto.ExpiryLevelWarning
	}
	return ""
}

// ScanAndPublish ejecuta ambas alertas y publica un evento por alerta en pharmacy.alerts.
// Devuelve cuántas alertas de cada tipo se emitieron.
func (uc *AlertUseCase) ScanAndPublish(ctx context.Context, now time.Time) (lowStock, expiry int, err error) {
	low, err := uc.LowStock(ctx)
	if err != nil {
		return 0, 0, err
	}
	exp, err := uc.ExpiryAlerts(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range low {
		publish(ctx, uc.publisher, uc.logger, ports.ChangeEvent{
			List:       ports.ListAlerts,
			Type:       ports.EventLowStock,
			EntityID:   a.MedicineID,
			OccurredAt: now,
			Data: map[string]any{
				"name":            a.Name,
				"total_stock":     a.TotalStock,
				"min_stock_level": a.MinStockLevel,
			},
		})
	}
	for _, a := range exp {
		publish(ctx, uc.publisher, uc.logger, ports.ChangeEvent{
			List:       ports.ListAlerts,
			Type:       ports.EventExpiry,
			EntityID:   a.BatchID,
			OccurredAt: now,
			Data: map[string]any{
				"medicine_id":       a.MedicineID,
				"level":             a.Level,
				"days_until_expiry": a.DaysUntilExpiry,
				"current_quantity":  a.CurrentQuantity,
			},
		})
	}
	uc.logger.Info().Int("low_stock", len(low)).Int("expiry", len(exp)).Msg("escaneo de alertas de farmacia")
	return len(low), len(exp), nil
}
