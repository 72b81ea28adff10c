package postgresql

import (
	"context"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

// PostgreSQLDataSource wraps SQLCommonDataSource with PostgreSQL-specific dialect.
type PostgreSQLDataSource struct {
	*sqlcommon.SQLCommonDataSource
}

// OpenPostgreSQLDataSource connects a PostgreSQL datasource for the descriptor.
func OpenPostgreSQLDataSource(ctx context.Context, d domain.ConnectionDescriptor) (*PostgreSQLDataSource, error) {
	common, err := sqlcommon.Open(ctx, d, &PostgreSQLDialect{})
	if err != nil {
		return nil, err
	}
	return &PostgreSQLDataSource{SQLCommonDataSource: common}, nil
}
