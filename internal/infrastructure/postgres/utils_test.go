package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Clinica-api/internal/domain"
)

func TestWrap_MapeaCodigos(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001"}
	deadlock := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"})
	unique := &pgconn.PgError{Code: "23505"}

	assert.ErrorIs(t, wrap("commit", serialization), domain.ErrConflict)
	assert.ErrorIs(t, wrap("commit", deadlock), domain.ErrConflict)
	assert.ErrorIs(t, wrap("insert", unique), domain.ErrDuplicate)
	assert.Nil(t, wrap("noop", nil))

	other := errors.New("boom")
	err := wrap("select", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isForeignKeyViolation(errors.New("23503")))
}

func TestMigrationsEmbebidas(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "0001_pharmacy.sql", entries[0].Name())

	body, err := migrationsFS.ReadFile("migrations/0001_pharmacy.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "chk_batch_quantity")
}
