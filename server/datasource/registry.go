// Package datasource wires the per-driver factories into a connector used by
// credential rotation.
package datasource

import (
	"context"
	"sync"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	"github.com/kasuganosora/statsgate/server/datasource/mysql"
	"github.com/kasuganosora/statsgate/server/datasource/postgresql"
	"github.com/kasuganosora/statsgate/server/datasource/sqlite"
)

// Factory opens handles for one driver type.
type Factory interface {
	GetType() domain.DriverType
	Open(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error)
}

// Registry maps driver types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[domain.DriverType]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[domain.DriverType]Factory)}
}

// DefaultRegistry returns a registry with the MySQL, PostgreSQL and SQLite factories.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(mysql.NewMySQLFactory())
	r.Register(postgresql.NewPostgreSQLFactory())
	r.Register(sqlite.NewSQLiteFactory())
	return r
}

// Register adds or replaces the factory for its driver type.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.GetType()] = f
}

// Types returns the registered driver types.
func (r *Registry) Types() []domain.DriverType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.DriverType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// Connect opens a handle for d using the factory for its driver.
func (r *Registry) Connect(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error) {
	r.mu.RLock()
	f, ok := r.factories[d.Driver]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewErrConnectionFailed(d, &domain.ErrUnknownDriver{Driver: d.Driver})
	}
	return f.Open(ctx, d)
}
