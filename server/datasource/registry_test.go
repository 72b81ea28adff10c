package datasource

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

func TestDefaultRegistry_Types(t *testing.T) {
	types := DefaultRegistry().Types()
	assert.ElementsMatch(t, []domain.DriverType{domain.DriverMySQL, domain.DriverPostgreSQL, domain.DriverSQLite}, types)
}

func TestRegistry_UnknownDriver(t *testing.T) {
	_, err := DefaultRegistry().Connect(context.Background(), domain.ConnectionDescriptor{Name: "x", Driver: "oracle"})
	require.Error(t, err)

	var unknown *domain.ErrUnknownDriver
	assert.True(t, errors.As(err, &unknown))
	assert.Equal(t, domain.DriverType("oracle"), unknown.Driver)
}

func TestRegistry_ConnectSQLite(t *testing.T) {
	h, err := DefaultRegistry().Connect(context.Background(), domain.ConnectionDescriptor{
		Name:     "local",
		Driver:   domain.DriverSQLite,
		Database: filepath.Join(t.TempDir(), "stats.db"),
	})
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, "local", h.Descriptor().Name)
	records, err := h.QueryRecords(context.Background(), "SELECT 1 AS one")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0]["one"])
}

func TestRegistry_ConnectMySQLUnreachable(t *testing.T) {
	_, err := DefaultRegistry().Connect(context.Background(), domain.ConnectionDescriptor{
		Name:    "nowhere",
		Driver:  domain.DriverMySQL,
		Host:    "127.0.0.1",
		Port:    1,
		Timeout: 200_000_000,
	})
	require.Error(t, err)

	var failed *domain.ErrConnectionFailed
	assert.True(t, errors.As(err, &failed))
}
