package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// DefaultConnectTimeout bounds connect+ping when the descriptor sets none.
const DefaultConnectTimeout = 5 * time.Second

// ErrClosed is returned by a DataSource used after Close.
var ErrClosed = errors.New("datasource is closed")

// SQLCommonDataSource implements domain.Handle using database/sql.
// MySQL, PostgreSQL and SQLite share it through their dialects.
// It only ever issues read-only statements.
type SQLCommonDataSource struct {
	mu         sync.RWMutex
	descriptor domain.ConnectionDescriptor
	sqlCfg     *SQLConfig
	dialect    Dialect
	db         *sql.DB
}

// NewSQLCommonDataSource creates an unconnected datasource.
func NewSQLCommonDataSource(d domain.ConnectionDescriptor, sqlCfg *SQLConfig, dialect Dialect) *SQLCommonDataSource {
	return &SQLCommonDataSource{
		descriptor: d,
		sqlCfg:     sqlCfg,
		dialect:    dialect,
	}
}

// Open builds a datasource for d and connects it.
func Open(ctx context.Context, d domain.ConnectionDescriptor, dialect Dialect) (*SQLCommonDataSource, error) {
	sqlCfg, err := ParseSQLConfig(d)
	if err != nil {
		return nil, domain.NewErrConnectionFailed(d, err)
	}
	ds := NewSQLCommonDataSource(d, sqlCfg, dialect)
	if err := ds.Connect(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// Connect opens the database connection and verifies it within the descriptor timeout.
func (ds *SQLCommonDataSource) Connect(ctx context.Context) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	dsn, err := ds.dialect.BuildDSN(ds.descriptor, ds.sqlCfg)
	if err != nil {
		return domain.NewErrConnectionFailed(ds.descriptor, fmt.Errorf("build DSN: %w", err))
	}

	db, err := sql.Open(ds.dialect.DriverName(), dsn)
	if err != nil {
		return domain.NewErrConnectionFailed(ds.descriptor, err)
	}

	// Configure pool
	db.SetMaxOpenConns(ds.sqlCfg.MaxOpenConns)
	db.SetMaxIdleConns(ds.sqlCfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(ds.sqlCfg.ConnMaxLifetime) * time.Second)

	timeout := ds.descriptor.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return domain.NewErrConnectionFailed(ds.descriptor, err)
	}

	ds.db = db
	return nil
}

// Close closes the database connection.
func (ds *SQLCommonDataSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.db == nil {
		return nil
	}
	err := ds.db.Close()
	ds.db = nil
	return err
}

// Descriptor returns the descriptor this datasource connected with.
func (ds *SQLCommonDataSource) Descriptor() domain.ConnectionDescriptor {
	return ds.descriptor
}

// Placeholder returns the dialect placeholder for the n-th parameter.
func (ds *SQLCommonDataSource) Placeholder(n int) string {
	return ds.dialect.Placeholder(n)
}

func (ds *SQLCommonDataSource) conn() (*sql.DB, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.db == nil {
		return nil, ErrClosed
	}
	return ds.db, nil
}

// TableExists reports whether a table or view with the name exists.
func (ds *SQLCommonDataSource) TableExists(ctx context.Context, table string) (bool, error) {
	db, err := ds.conn()
	if err != nil {
		return false, err
	}

	var n int64
	if err := db.QueryRowContext(ctx, ds.dialect.TableExistsQuery(), table).Scan(&n); err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return n > 0, nil
}

// CountRows returns the number of rows in table.
func (ds *SQLCommonDataSource) CountRows(ctx context.Context, table string) (int64, error) {
	db, err := ds.conn()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.QueryRowContext(ctx, BuildCountSQL(ds.dialect, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Columns returns the column names of table in declaration order.
func (ds *SQLCommonDataSource) Columns(ctx context.Context, table string) ([]string, error) {
	db, err := ds.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, ds.dialect.ColumnsQuery(), table)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// QueryRecords executes a read-only query and returns the scanned records.
func (ds *SQLCommonDataSource) QueryRecords(ctx context.Context, query string, args ...interface{}) ([]domain.Record, error) {
	db, err := ds.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records, _, err := ScanRecords(rows)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DB exposes the underlying pool, mainly for test fixtures.
func (ds *SQLCommonDataSource) DB() *sql.DB {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.db
}
