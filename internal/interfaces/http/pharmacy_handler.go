package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
)

// PharmacyHandler ventas de farmacia, comprobantes y alertas de stock.
type PharmacyHandler struct {
	checkout *pharmacy.CheckoutUseCase
	sales    *pharmacy.SalesUseCase
	alerts   *pharmacy.AlertUseCase
	now      func() time.Time
}

// NewPharmacyHandler construye el handler.
func NewPharmacyHandler(checkout *pharmacy.CheckoutUseCase, sales *pharmacy.SalesUseCase, alerts *pharmacy.AlertUseCase) *PharmacyHandler {
	return &PharmacyHandler{checkout: checkout, sales: sales, alerts: alerts, now: time.Now}
}

// Checkout godoc
// @Summary      Registrar venta (asignación FEFO por lotes)
// @Tags         pharmacy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckoutRequest  true  "Carrito"
// @Success      201   {object}  dto.SaleOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/pharmacy/checkout [post]
func (h *PharmacyHandler) Checkout(c *fiber.Ctx) error {
	sess, ok := GetSession(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "sesión requerida")
	}
	var in dto.CheckoutRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.checkout.Checkout(c.UserContext(), sess, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListSales godoc
// @Summary      Ventas por período (fechas locales de la clínica, to inclusivo)
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "YYYY-MM-DD (por defecto hoy)"
// @Param        to    query  string  false  "YYYY-MM-DD (por defecto from)"
// @Success      200   {array}  dto.SaleOrderResponse
// @Router       /api/pharmacy/sales [get]
func (h *PharmacyHandler) ListSales(c *fiber.Ctx) error {
	var q dto.SalesQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	out, err := h.sales.List(c.UserContext(), q, h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetSale godoc
// @Summary      Obtener venta por ID
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pharmacy/sales/{id} [get]
func (h *PharmacyHandler) GetSale(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	out, err := h.sales.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Receipt godoc
// @Summary      Comprobante PDF de la venta
// @Tags         pharmacy
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pharmacy/sales/{id}/receipt.pdf [get]
func (h *PharmacyHandler) Receipt(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	pdfBytes, filename, err := h.sales.ReceiptPDF(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// LowStock godoc
// @Summary      Medicamentos activos bajo su stock mínimo
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.LowStockAlert
// @Router       /api/pharmacy/alerts/low-stock [get]
func (h *PharmacyHandler) LowStock(c *fiber.Ctx) error {
	out, err := h.alerts.LowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Expiry godoc
// @Summary      Lotes vencidos o próximos a vencer
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ExpiryAlert
// @Router       /api/pharmacy/alerts/expiry [get]
func (h *PharmacyHandler) Expiry(c *fiber.Ctx) error {
	out, err := h.alerts.ExpiryAlerts(c.UserContext(), h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
