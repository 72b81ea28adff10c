package sql

import "fmt"

// BuildCountSQL builds the row-count query used by capability probing.
func BuildCountSQL(d Dialect, tableName string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdentifier(tableName))
}
