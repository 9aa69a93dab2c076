package entity

import "time"

// Roles del personal de la clínica.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RolePharmacist   = "pharmacist"
	RoleReceptionist = "receptionist"
)

// ValidRole indica si r es un rol conocido.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePharmacist, RoleReceptionist:
		return true
	}
	return false
}

// User representa un miembro del personal con acceso al sistema.
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	DisplayName  string
	Role         string
	Email        string
	Phone        string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
