package postgresql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

// PostgreSQLDialect implements sql.Dialect for PostgreSQL.
type PostgreSQLDialect struct{}

func (d *PostgreSQLDialect) DriverName() string { return "postgres" }

func (d *PostgreSQLDialect) BuildDSN(desc domain.ConnectionDescriptor, sqlCfg *sqlcommon.SQLConfig) (string, error) {
	if desc.Host == "" {
		return "", fmt.Errorf("postgresql descriptor %q has no host", desc.Name)
	}
	port := desc.Port
	if port <= 0 {
		port = 5432
	}

	parts := []string{
		fmt.Sprintf("host=%s", desc.Host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", quoteValue(desc.Principal)),
		fmt.Sprintf("password=%s", quoteValue(desc.Secret)),
		fmt.Sprintf("dbname=%s", quoteValue(desc.Database)),
		fmt.Sprintf("sslmode=%s", sqlCfg.SSLMode),
	}

	if sqlCfg.Schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", sqlCfg.Schema))
	}
	if desc.Timeout > 0 {
		// connect_timeout has whole-second resolution; never round down to 0 (infinite)
		secs := int(desc.Timeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", secs))
	}
	if sqlCfg.SSLCert != "" {
		parts = append(parts, fmt.Sprintf("sslcert=%s", sqlCfg.SSLCert))
	}
	if sqlCfg.SSLKey != "" {
		parts = append(parts, fmt.Sprintf("sslkey=%s", sqlCfg.SSLKey))
	}
	if sqlCfg.SSLRootCert != "" {
		parts = append(parts, fmt.Sprintf("sslrootcert=%s", sqlCfg.SSLRootCert))
	}

	return strings.Join(parts, " "), nil
}

// quoteValue quotes a keyword/value DSN value when it is empty or contains spaces or quotes.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (d *PostgreSQLDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *PostgreSQLDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (d *PostgreSQLDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables
WHERE table_schema = current_schema() AND table_name = $1`
}

func (d *PostgreSQLDialect) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`
}
