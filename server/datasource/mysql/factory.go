package mysql

import (
	"context"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// MySQLFactory creates MySQL handles.
type MySQLFactory struct{}

// NewMySQLFactory creates a new MySQLFactory.
func NewMySQLFactory() *MySQLFactory {
	return &MySQLFactory{}
}

// GetType returns the driver type.
func (f *MySQLFactory) GetType() domain.DriverType {
	return domain.DriverMySQL
}

// Open connects a MySQL handle for the descriptor.
func (f *MySQLFactory) Open(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error) {
	ds, err := OpenMySQLDataSource(ctx, d)
	if err != nil {
		return nil, err
	}
	return ds, nil
}
