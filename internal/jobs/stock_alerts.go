package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// AlertScanner calcula las alertas y las publica en el canal de eventos.
type AlertScanner interface {
	ScanAndPublish(ctx context.Context, now time.Time) (lowStock, expiry int, err error)
}

// StockAlertsJob ejecuta TaskStockAlerts.
type StockAlertsJob struct {
	scanner AlertScanner
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStockAlertsJob construye el job. now nil usa time.Now.
func NewStockAlertsJob(scanner AlertScanner, logger zerolog.Logger, now func() time.Time) *StockAlertsJob {
	if now == nil {
		now = time.Now
	}
	return &StockAlertsJob{scanner: scanner, logger: logger, now: now}
}

// Handle procesa la tarea. Un payload ilegible no se reintenta.
func (j *StockAlertsJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StockAlertsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			j.logger.Error().Err(err).Str("task", t.Type()).Msg("payload inválido")
			return fmt.Errorf("stock alerts: payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	at := payload.ScheduledFor
	if at.IsZero() {
		at = j.now()
	}

	low, expiry, err := j.scanner.ScanAndPublish(ctx, at)
	if err != nil {
		j.logger.Error().Err(err).Str("trigger", payload.Trigger).Msg("escaneo de alertas fallido")
		return fmt.Errorf("stock alerts: %w", err)
	}
	j.logger.Info().
		Str("trigger", payload.Trigger).
		Time("at", at).
		Int("low_stock", low).
		Int("expiry", expiry).
		Msg("alertas de stock publicadas")
	return nil
}
