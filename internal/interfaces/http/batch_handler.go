package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
)

// BatchHandler recepción y ajuste de lotes.
type BatchHandler struct {
	uc *pharmacy.BatchUseCase
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc *pharmacy.BatchUseCase) *BatchHandler {
	return &BatchHandler{uc: uc}
}

// Receive godoc
// @Summary      Recibir lote de mercancía
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveBatchRequest  true  "Lote recibido"
// @Success      201   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Receive(c *fiber.Ctx) error {
	sess, _ := GetSession(c)
	var in dto.ReceiveBatchRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.Receive(c.UserContext(), sess, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Adjust godoc
// @Summary      Ajuste correctivo (solo disminuye)
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del lote"
// @Param        body  body  dto.AdjustBatchRequest  true  "Cantidad a retirar y motivo"
// @Success      200   {object}  dto.BatchResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/adjust [post]
func (h *BatchHandler) Adjust(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	sess, _ := GetSession(c)
	var in dto.AdjustBatchRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.Adjust(c.UserContext(), sess, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
