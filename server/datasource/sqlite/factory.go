package sqlite

import (
	"context"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// SQLiteFactory creates SQLite handles.
type SQLiteFactory struct{}

// NewSQLiteFactory creates a new SQLiteFactory.
func NewSQLiteFactory() *SQLiteFactory {
	return &SQLiteFactory{}
}

// GetType returns the driver type.
func (f *SQLiteFactory) GetType() domain.DriverType {
	return domain.DriverSQLite
}

// Open connects a SQLite handle for the descriptor.
func (f *SQLiteFactory) Open(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error) {
	ds, err := OpenSQLiteDataSource(ctx, d)
	if err != nil {
		return nil, err
	}
	return ds, nil
}
