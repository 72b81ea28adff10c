package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

func newFixtureDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE products (id INTEGER PRIMARY KEY, sku TEXT, name TEXT, price REAL)`,
		`CREATE TABLE product_images (product_id INTEGER, url TEXT)`,
		`INSERT INTO products (id, sku, name, price) VALUES (1, 'A-1', 'Anvil', 19.5), (2, 'B-2', 'Bucket', 4.25)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestSQLiteDataSource_Metadata(t *testing.T) {
	ctx := context.Background()
	ds, err := OpenSQLiteDataSource(ctx, domain.ConnectionDescriptor{
		Name:     "local",
		Driver:   domain.DriverSQLite,
		Database: newFixtureDB(t),
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	defer ds.Close()

	exists, err := ds.TableExists(ctx, "products")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ds.TableExists(ctx, "ebay_listings")
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := ds.CountRows(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = ds.CountRows(ctx, "product_images")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	cols, err := ds.Columns(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "sku", "name", "price"}, cols)

	_, err = ds.CountRows(ctx, "missing_table")
	assert.Error(t, err)
}

func TestSQLiteDataSource_QueryRecords(t *testing.T) {
	ctx := context.Background()
	ds, err := OpenSQLiteDataSource(ctx, domain.ConnectionDescriptor{Database: newFixtureDB(t)})
	require.NoError(t, err)
	defer ds.Close()

	records, err := ds.QueryRecords(ctx, "SELECT id, sku, price FROM products WHERE sku LIKE "+ds.Placeholder(1)+" ORDER BY id", "%A%")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0]["id"])
	assert.Equal(t, "A-1", records[0]["sku"])
	assert.Equal(t, 19.5, records[0]["price"])
}

func TestSQLiteDataSource_Closed(t *testing.T) {
	ctx := context.Background()
	ds, err := OpenSQLiteDataSource(ctx, domain.ConnectionDescriptor{Database: newFixtureDB(t)})
	require.NoError(t, err)

	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	_, err = ds.QueryRecords(ctx, "SELECT 1")
	assert.ErrorIs(t, err, sqlcommon.ErrClosed)
}

func TestSQLiteDialect_BuildDSN(t *testing.T) {
	d := &SQLiteDialect{}
	cfg, err := sqlcommon.ParseSQLConfig(domain.ConnectionDescriptor{})
	require.NoError(t, err)

	dsn, err := d.BuildDSN(domain.ConnectionDescriptor{Database: "/var/lib/stats.db"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/stats.db?_pragma=busy_timeout(2000)", dsn)

	dsn, err = d.BuildDSN(domain.ConnectionDescriptor{Database: ":memory:"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", dsn)

	_, err = d.BuildDSN(domain.ConnectionDescriptor{Name: "empty"}, cfg)
	assert.Error(t, err)
}
