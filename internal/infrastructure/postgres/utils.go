package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/Clinica-api/internal/domain"
)

// Códigos SQLSTATE usados por los repos.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

// isSerializationFailure errores que PostgreSQL devuelve cuando dos transacciones RepeatableRead
// tocan las mismas filas; la transacción completa puede reintentarse.
func isSerializationFailure(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// wrap traduce errores de PostgreSQL a errores de dominio y conserva el original en la cadena.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isSerializationFailure(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// sqlDate fecha calendario de t (en su propia zona) como literal YYYY-MM-DD.
func sqlDate(t time.Time) string {
	return t.Format("2006-01-02")
}
