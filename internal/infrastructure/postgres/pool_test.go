package postgres

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Clinica-api/pkg/config"
)

func TestPoolConfigFrom(t *testing.T) {
	cfg := config.DBConfig{
		Host: "db.local", Port: 5433, User: "farmacia", Password: "p@ss:w/rd", DBName: "clinica", SSLMode: "disable",
		MaxConns: 10, MinConns: 3, ForceIPv4: true,
	}
	pc, err := poolConfigFrom(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(10), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, "db.local", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "p@ss:w/rd", pc.ConnConfig.Password)
	assert.Equal(t, "UTC", pc.ConnConfig.RuntimeParams["timezone"])
	assert.NotNil(t, pc.ConnConfig.DialFunc)
	assert.NotNil(t, pc.AfterConnect)
}

func TestPoolConfigFrom_DatabaseURLYMinMayorQueMax(t *testing.T) {
	pc, err := poolConfigFrom(config.DBConfig{
		DatabaseURL: "postgres://u:p@h:5432/clinica?sslmode=disable",
		MaxConns:    4,
		MinConns:    9,
	})
	require.NoError(t, err)
	assert.Equal(t, "clinica", pc.ConnConfig.Database)
	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, int32(0), pc.MinConns)
}

func TestPoolConfigFrom_DSNInvalido(t *testing.T) {
	_, err := poolConfigFrom(config.DBConfig{DatabaseURL: "postgres://%zz"})
	assert.Error(t, err)
}

type fakeResolver struct {
	ips []net.IP
	err error
}

func (f fakeResolver) LookupIP(context.Context, string, string) ([]net.IP, error) { return f.ips, f.err }

func TestLookupIPv4(t *testing.T) {
	ctx := context.Background()

	ip, err := lookupIPv4(ctx, fakeResolver{}, "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", ip)

	_, err = lookupIPv4(ctx, fakeResolver{}, "::1")
	assert.Error(t, err)

	ip, err = lookupIPv4(ctx, fakeResolver{ips: []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("192.0.2.10")}}, "db")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", ip)

	_, err = lookupIPv4(ctx, fakeResolver{err: errors.New("nxdomain")}, "db")
	assert.Error(t, err)
}
