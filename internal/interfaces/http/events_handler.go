package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/Clinica-api/internal/application/ports"
)

// sseHeartbeat intervalo de los comentarios keep-alive; un fallo al escribirlos cierra la suscripción.
const sseHeartbeat = 15 * time.Second

// EventsHandler reenvía los eventos de cambio como Server-Sent Events.
type EventsHandler struct {
	sub ports.EventSubscriber
}

// NewEventsHandler construye el handler. sub nil responde 503.
func NewEventsHandler(sub ports.EventSubscriber) *EventsHandler {
	return &EventsHandler{sub: sub}
}

// Stream godoc
// @Summary      Eventos de cambio en vivo (Server-Sent Events)
// @Tags         events
// @Security     Bearer
// @Produce      text/event-stream
// @Param        lists  query  string  false  "listas separadas por coma: pharmacy.sales,pharmacy.batches,pharmacy.alerts (por defecto todas)"
// @Success      200    {string}  string  "stream de eventos"
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      401    {object}  dto.ErrorResponse
// @Failure      503    {object}  dto.ErrorResponse
// @Router       /api/events [get]
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	if h.sub == nil {
		return fail(c, fiber.StatusServiceUnavailable, "EVENTS_UNAVAILABLE", "eventos en vivo deshabilitados")
	}
	lists, err := parseLists(c.Query("lists"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "INVALID_LIST", err.Error())
	}

	// La suscripción vive lo que dure el stream, no la petición
	ctx, cancel := context.WithCancel(context.Background())
	events, err := h.sub.Subscribe(ctx, lists...)
	if err != nil {
		cancel()
		return fail(c, fiber.StatusServiceUnavailable, "EVENTS_UNAVAILABLE", "no se pudo suscribir a los eventos")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(sseHeartbeat)
		defer ticker.Stop()
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				if err := writeSSE(w, evt); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

// parseLists valida la lista separada por comas; vacía significa todas.
func parseLists(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return ports.Lists(), nil
	}
	seen := map[string]bool{}
	var out []string
	for _, l := range strings.Split(raw, ",") {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		if !ports.ValidList(l) {
			return nil, fmt.Errorf("lista desconocida %q", l)
		}
		seen[l] = true
		out = append(out, l)
	}
	if len(out) == 0 {
		return ports.Lists(), nil
	}
	return out, nil
}

func writeSSE(w *bufio.Writer, evt ports.ChangeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload); err != nil {
		return err
	}
	return w.Flush()
}
