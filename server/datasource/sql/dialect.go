package sql

import "github.com/kasuganosora/statsgate/pkg/resource/domain"

// Dialect encapsulates database-engine-specific behavior.
type Dialect interface {
	// DriverName returns the database/sql driver name ("mysql", "postgres" or "sqlite")
	DriverName() string

	// BuildDSN constructs the driver-specific connection string
	BuildDSN(d domain.ConnectionDescriptor, sqlCfg *SQLConfig) (string, error)

	// QuoteIdentifier wraps a table/column name in dialect-specific quoting
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for the n-th parameter (1-based)
	Placeholder(n int) string

	// TableExistsQuery returns SQL counting tables/views with the given name; accepts table name as parameter
	TableExistsQuery() string

	// ColumnsQuery returns SQL listing column names in declaration order; accepts table name as parameter
	ColumnsQuery() string
}
