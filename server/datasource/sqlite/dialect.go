package sqlite

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

// SQLiteDialect implements sql.Dialect for SQLite (modernc.org/sqlite).
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string { return "sqlite" }

// BuildDSN uses the descriptor database as the file path. Host, principal and secret are ignored.
func (d *SQLiteDialect) BuildDSN(desc domain.ConnectionDescriptor, sqlCfg *sqlcommon.SQLConfig) (string, error) {
	path := strings.TrimSpace(desc.Database)
	if path == "" {
		return "", fmt.Errorf("sqlite descriptor %q has no database path", desc.Name)
	}
	if path == ":memory:" || strings.Contains(path, "?") {
		return path, nil
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, sqlCfg.BusyTimeout), nil
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *SQLiteDialect) Placeholder(n int) string {
	return "?"
}

func (d *SQLiteDialect) TableExistsQuery() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?"
}

func (d *SQLiteDialect) ColumnsQuery() string {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid"
}
