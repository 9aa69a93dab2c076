package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrUserNotFound          = errors.New("usuario no encontrado")
	ErrUsernameAlreadyExists = errors.New("el nombre de usuario ya está registrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrDuplicate             = errors.New("recurso duplicado")
	ErrUnauthorized          = errors.New("no autorizado")
	ErrForbidden             = errors.New("acceso denegado")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrUnknownMedicine       = errors.New("medicamento desconocido")
	ErrMedicineInactive      = errors.New("medicamento inactivo")
	ErrMedicineInUse         = errors.New("medicamento referenciado por lotes u órdenes")

	// ErrTransientStorageConflict se devuelve cuando se agotan los reintentos ante escritores concurrentes.
	// El caller puede reintentar la operación completa.
	ErrTransientStorageConflict = errors.New("conflicto transitorio de almacenamiento")
)

// InsufficientStockError detalla qué medicamento no alcanzó y por cuánto.
type InsufficientStockError struct {
	MedicineID   string
	MedicineName string
	Requested    int64
	Available    int64
}

func (e *InsufficientStockError) Error() string {
	name := e.MedicineName
	if name == "" {
		name = e.MedicineID
	}
	return fmt.Sprintf("stock insuficiente para %s (solicitado: %d, disponible: %d)", name, e.Requested, e.Available)
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Shortfall cantidad faltante.
func (e *InsufficientStockError) Shortfall() int64 { return e.Requested - e.Available }

// UnknownMedicineError indica que un medicamentoId no existe en el catálogo.
type UnknownMedicineError struct {
	MedicineID string
}

func (e *UnknownMedicineError) Error() string {
	return fmt.Sprintf("medicamento desconocido: %s", e.MedicineID)
}

// Is permite errors.Is(err, ErrUnknownMedicine).
func (e *UnknownMedicineError) Is(target error) bool { return target == ErrUnknownMedicine }
