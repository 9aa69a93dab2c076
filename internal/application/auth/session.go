package auth

import "github.com/jhoicas/Clinica-api/internal/domain/entity"

// Session identidad del usuario autenticado para una petición.
// La construye el middleware HTTP a partir del JWT y se pasa explícitamente a los casos de uso.
type Session struct {
	UserID      string
	DisplayName string
	Role        string
}

// HasRole indica si la sesión tiene alguno de los roles dados. admin pasa siempre.
func (s Session) HasRole(roles ...string) bool {
	if s.Role == entity.RoleAdmin {
		return true
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Actor nombre a registrar en CreatedBy: display name si existe, si no el ID.
func (s Session) Actor() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.UserID
}
