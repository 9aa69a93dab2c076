package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault cola por defecto de los trabajos en segundo plano.
	QueueDefault = "default"
	// TaskStockAlerts recorre stock bajo y vencimientos y publica las alertas.
	TaskStockAlerts = "pharmacy:stock_alerts"
)

// StockAlertsPayload metadatos de la ejecución. ScheduledFor vacío significa "ahora".
type StockAlertsPayload struct {
	ScheduledFor time.Time `json:"scheduled_for,omitempty"`
	Trigger      string    `json:"trigger"`
}

// NewStockAlertsTask construye la tarea de alertas de stock.
func NewStockAlertsTask(payload StockAlertsPayload) (*asynq.Task, error) {
	if payload.Trigger == "" {
		payload.Trigger = "cron"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlerts, body, asynq.Queue(QueueDefault)), nil
}
