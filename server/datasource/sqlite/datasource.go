package sqlite

import (
	"context"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

// SQLiteDataSource wraps SQLCommonDataSource with the SQLite dialect.
type SQLiteDataSource struct {
	*sqlcommon.SQLCommonDataSource
}

// OpenSQLiteDataSource connects a SQLite datasource for the descriptor.
func OpenSQLiteDataSource(ctx context.Context, d domain.ConnectionDescriptor) (*SQLiteDataSource, error) {
	common, err := sqlcommon.Open(ctx, d, &SQLiteDialect{})
	if err != nil {
		return nil, err
	}
	return &SQLiteDataSource{SQLCommonDataSource: common}, nil
}
