package ports

import (
	"context"
	"time"
)

// Listas lógicas a las que se suscriben los tableros en vivo.
const (
	ListSales   = "pharmacy.sales"
	ListBatches = "pharmacy.batches"
	ListAlerts  = "pharmacy.alerts"
)

// Lists listas lógicas conocidas, en orden estable.
func Lists() []string {
	return []string{ListSales, ListBatches, ListAlerts}
}

// ValidList indica si list es una de las listas lógicas conocidas.
func ValidList(list string) bool {
	for _, l := range Lists() {
		if l == list {
			return true
		}
	}
	return false
}

// Tipos de evento publicados tras cada transacción confirmada.
const (
	EventSaleCreated     = "sale.created"
	EventBatchReceived   = "batch.received"
	EventBatchAdjusted   = "batch.adjusted"
	EventBatchesDepleted = "batches.updated"
	EventLowStock        = "alert.low_stock"
	EventExpiry          = "alert.expiry"
)

// ChangeEvent notificación de cambio sobre una lista lógica.
type ChangeEvent struct {
	List       string         `json:"list"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventPublisher define el puerto de salida para publicar cambios confirmados.
// Se invoca siempre DESPUÉS del commit; un error aquí no revierte la operación.
type EventPublisher interface {
	Publish(ctx context.Context, evt ChangeEvent) error
}

// EventSubscriber entrega los eventos de las listas pedidas hasta que ctx termina;
// el canal devuelto se cierra al terminar.
type EventSubscriber interface {
	Subscribe(ctx context.Context, lists ...string) (<-chan ChangeEvent, error)
}

// NopPublisher descarta los eventos (sin Redis configurado).
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, ChangeEvent) error { return nil }
