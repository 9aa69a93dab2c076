package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Clinica-api/pkg/jwt"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := jwt.Generate("secreto", "user-1", "Dược sĩ Lan", "pharmacist", "clinica-api", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Dược sĩ Lan", claims.DisplayName)
	assert.Equal(t, "pharmacist", claims.Role)
	assert.Equal(t, "clinica-api", claims.Issuer)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	token, err := jwt.Generate("secreto", "user-1", "", "admin", "", 5)
	require.NoError(t, err)
	_, err = jwt.Parse("otro", token)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	token, err := jwt.Generate("secreto", "user-1", "", "admin", "", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("secreto", token)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "u", "", "admin", "", 5)
	assert.Error(t, err)
	_, err = jwt.Parse("", "x.y.z")
	assert.Error(t, err)
}
