package mysql

import (
	"context"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

// MySQLDataSource wraps SQLCommonDataSource with MySQL-specific dialect.
type MySQLDataSource struct {
	*sqlcommon.SQLCommonDataSource
}

// OpenMySQLDataSource connects a MySQL datasource for the descriptor.
func OpenMySQLDataSource(ctx context.Context, d domain.ConnectionDescriptor) (*MySQLDataSource, error) {
	common, err := sqlcommon.Open(ctx, d, &MySQLDialect{})
	if err != nil {
		return nil, err
	}
	return &MySQLDataSource{SQLCommonDataSource: common}, nil
}
