package http

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Clinica-api/internal/application/dto"
	"github.com/jhoicas/Clinica-api/internal/domain"
)

var validate = validator.New()

// fail responde con el código y el cuerpo de error estándar.
func fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: message})
}

// parseBody decodifica el JSON y aplica las reglas validate del DTO.
// Si falla, ya respondió 400 y devuelve ok=false.
func parseBody(c *fiber.Ctx, out any) (ok bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return false, fail(c, fiber.StatusBadRequest, "INVALID_BODY", "cuerpo inválido")
	}
	return checkStruct(c, out)
}

// parseQuery igual que parseBody para parámetros de query.
func parseQuery(c *fiber.Ctx, out any) (ok bool, err error) {
	if err := c.QueryParser(out); err != nil {
		return false, fail(c, fiber.StatusBadRequest, "INVALID_QUERY", "parámetros inválidos")
	}
	return checkStruct(c, out)
}

func checkStruct(c *fiber.Ctx, out any) (bool, error) {
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+": "+fe.Tag())
			}
			return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "VALIDATION",
				Message: "datos inválidos",
				Details: fields,
			})
		}
		return false, fail(c, fiber.StatusBadRequest, "VALIDATION", err.Error())
	}
	return true, nil
}

// writeError traduce errores de dominio a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var insufficient *domain.InsufficientStockError
	var unknown *domain.UnknownMedicineError

	switch {
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: insufficient.Error(),
			Details: dto.InsufficientStockDetails{
				MedicineID:   insufficient.MedicineID,
				MedicineName: insufficient.MedicineName,
				Requested:    insufficient.Requested,
				Available:    insufficient.Available,
			},
		})
	case errors.As(err, &unknown):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Code:    "UNKNOWN_MEDICINE",
			Message: unknown.Error(),
			Details: fiber.Map{"medicine_id": unknown.MedicineID},
		})
	case errors.Is(err, domain.ErrTransientStorageConflict):
		c.Set(fiber.HeaderRetryAfter, "1")
		return fail(c, fiber.StatusServiceUnavailable, "TRANSIENT_CONFLICT", "demasiadas operaciones simultáneas, reintente")
	case errors.Is(err, domain.ErrInvalidInput):
		return fail(c, fiber.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "credenciales inválidas")
	case errors.Is(err, domain.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "FORBIDDEN", "acceso denegado")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado")
	case errors.Is(err, domain.ErrUsernameAlreadyExists):
		return fail(c, fiber.StatusConflict, "USERNAME_EXISTS", err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		return fail(c, fiber.StatusConflict, "DUPLICATE", err.Error())
	case errors.Is(err, domain.ErrMedicineInactive):
		return fail(c, fiber.StatusConflict, "MEDICINE_INACTIVE", err.Error())
	case errors.Is(err, domain.ErrMedicineInUse):
		return fail(c, fiber.StatusConflict, "MEDICINE_IN_USE", err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fail(c, fiber.StatusConflict, "CONFLICT", err.Error())
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return fail(c, fiber.StatusInternalServerError, "INTERNAL", "error interno")
}

// requireParam devuelve el parámetro de ruta o responde 400.
func requireParam(c *fiber.Ctx, name string) (string, bool, error) {
	v := strings.TrimSpace(c.Params(name))
	if v == "" {
		return "", false, fail(c, fiber.StatusBadRequest, "MISSING_"+strings.ToUpper(name), name+" es requerido")
	}
	return v, true, nil
}
