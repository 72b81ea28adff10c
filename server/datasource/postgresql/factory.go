package postgresql

import (
	"context"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// PostgreSQLFactory creates PostgreSQL handles.
type PostgreSQLFactory struct{}

// NewPostgreSQLFactory creates a new PostgreSQLFactory.
func NewPostgreSQLFactory() *PostgreSQLFactory {
	return &PostgreSQLFactory{}
}

// GetType returns the driver type.
func (f *PostgreSQLFactory) GetType() domain.DriverType {
	return domain.DriverPostgreSQL
}

// Open connects a PostgreSQL handle for the descriptor.
func (f *PostgreSQLFactory) Open(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error) {
	ds, err := OpenPostgreSQLDataSource(ctx, d)
	if err != nil {
		return nil, err
	}
	return ds, nil
}
