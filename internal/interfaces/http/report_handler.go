package http

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Clinica-api/internal/application/analytics"
)

// ReportHandler reportes de ingresos (solo admin).
type ReportHandler struct {
	uc  *analytics.RevenueUseCase
	loc *time.Location
	now func() time.Time
}

// NewReportHandler construye el handler. loc define qué es "hoy" cuando no llega date.
func NewReportHandler(uc *analytics.RevenueUseCase, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{uc: uc, loc: loc, now: time.Now}
}

func (h *ReportHandler) day(c *fiber.Ctx) string {
	if d := c.Query("date"); d != "" {
		return d
	}
	return h.now().In(h.loc).Format("2006-01-02")
}

// Daily godoc
// @Summary      Ingresos del día
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        date  query  string  false  "YYYY-MM-DD (por defecto hoy)"
// @Success      200   {object}  dto.DailyRevenueReport
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/reports/daily [get]
func (h *ReportHandler) Daily(c *fiber.Ctx) error {
	out, err := h.uc.DailyRevenue(c.UserContext(), h.day(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DailyCSV godoc
// @Summary      Ingresos del día en CSV (compatible con Excel)
// @Tags         reports
// @Security     Bearer
// @Produce      text/csv
// @Param        date  query  string  false  "YYYY-MM-DD (por defecto hoy)"
// @Success      200   {file}  binary
// @Router       /api/reports/daily.csv [get]
func (h *ReportHandler) DailyCSV(c *fiber.Ctx) error {
	day := h.day(c)
	var buf bytes.Buffer
	if err := h.uc.ExportDailyRevenueCSV(c.UserContext(), day, &buf); err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="ingresos_`+day+`.csv"`)
	return c.Send(buf.Bytes())
}
