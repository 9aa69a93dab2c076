package http

import (
	"bytes"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
)

// MedicineHandler catálogo de medicamentos y consulta de existencias.
type MedicineHandler struct {
	catalog *pharmacy.CatalogUseCase
	batches *pharmacy.BatchUseCase
}

// NewMedicineHandler construye el handler.
func NewMedicineHandler(catalog *pharmacy.CatalogUseCase, batches *pharmacy.BatchUseCase) *MedicineHandler {
	return &MedicineHandler{catalog: catalog, batches: batches}
}

// Create godoc
// @Summary      Crear medicamento
// @Tags         medicines
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMedicineRequest  true  "Datos del medicamento"
// @Success      201   {object}  dto.MedicineResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/medicines [post]
func (h *MedicineHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMedicineRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.catalog.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener medicamento por ID
// @Tags         medicines
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del medicamento"
// @Success      200  {object}  dto.MedicineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/medicines/{id} [get]
func (h *MedicineHandler) GetByID(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	out, err := h.catalog.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar medicamentos
// @Tags         medicines
// @Security     Bearer
// @Produce      json
// @Param        limit             query  int     false  "Límite"  default(20)
// @Param        offset            query  int     false  "Offset"  default(0)
// @Param        category          query  string  false  "Categoría"
// @Param        include_inactive  query  bool    false  "Incluir inactivos"
// @Success      200  {object}  dto.MedicineListResponse
// @Router       /api/medicines [get]
func (h *MedicineHandler) List(c *fiber.Ctx) error {
	var q dto.MedicineQuery
	if err := c.QueryParser(&q); err != nil {
		return fail(c, fiber.StatusBadRequest, "INVALID_QUERY", "parámetros inválidos")
	}
	q.DefaultPage()
	if ok, err := checkStruct(c, &q); !ok {
		return err
	}
	out, err := h.catalog.List(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Search godoc
// @Summary      Buscar medicamentos por nombre o SKU (sin distinguir acentos)
// @Tags         medicines
// @Security     Bearer
// @Produce      json
// @Param        q      query  string  true   "Texto a buscar"
// @Param        limit  query  int     false  "Límite"  default(20)
// @Success      200  {array}  dto.MedicineResponse
// @Router       /api/medicines/search [get]
func (h *MedicineHandler) Search(c *fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return fail(c, fiber.StatusBadRequest, "VALIDATION", "q es requerido")
	}
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	out, err := h.catalog.Search(c.UserContext(), term, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar medicamento (parcial)
// @Tags         medicines
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del medicamento"
// @Param        body  body  dto.UpdateMedicineRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.MedicineResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/medicines/{id} [put]
func (h *MedicineHandler) Update(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	var in dto.UpdateMedicineRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.catalog.Update(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Deactivate godoc
// @Summary      Desactivar medicamento
// @Tags         medicines
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del medicamento"
// @Success      200  {object}  dto.MedicineResponse
// @Router       /api/medicines/{id}/deactivate [post]
func (h *MedicineHandler) Deactivate(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	out, err := h.catalog.Deactivate(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar medicamento sin lotes ni ventas
// @Tags         medicines
// @Security     Bearer
// @Param        id   path  string  true  "ID del medicamento"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/medicines/{id} [delete]
func (h *MedicineHandler) Delete(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	if err := h.catalog.Delete(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Import godoc
// @Summary      Importar catálogo desde CSV (sku,name,unit,category,price)
// @Tags         medicines
// @Security     Bearer
// @Accept       mpfd
// @Produce      json
// @Param        file  formData  file  false  "Archivo CSV (o el CSV como cuerpo text/csv)"
// @Success      200   {object}  dto.ImportSummary
// @Router       /api/medicines/import [post]
func (h *MedicineHandler) Import(c *fiber.Ctx) error {
	var src io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "INVALID_FILE", "no se pudo leer el archivo")
		}
		defer f.Close()
		src = f
	} else {
		if len(c.Body()) == 0 {
			return fail(c, fiber.StatusBadRequest, "VALIDATION", "archivo CSV requerido")
		}
		src = bytes.NewReader(c.Body())
	}
	out, err := h.catalog.ImportCSV(c.UserContext(), src)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Stock godoc
// @Summary      Stock total del medicamento
// @Tags         medicines
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del medicamento"
// @Success      200  {object}  dto.StockResponse
// @Router       /api/medicines/{id}/stock [get]
func (h *MedicineHandler) Stock(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	out, err := h.batches.TotalStock(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Batches godoc
// @Summary      Lotes del medicamento en orden FEFO
// @Tags         medicines
// @Security     Bearer
// @Produce      json
// @Param        id                path   string  true   "ID del medicamento"
// @Param        include_depleted  query  bool    false  "Incluir lotes agotados"
// @Success      200  {array}  dto.BatchResponse
// @Router       /api/medicines/{id}/batches [get]
func (h *MedicineHandler) Batches(c *fiber.Ctx) error {
	id, ok, err := requireParam(c, "id")
	if !ok {
		return err
	}
	out, err := h.batches.List(c.UserContext(), id, c.QueryBool("include_depleted", false))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
