package mysql

import (
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

// MySQLDialect implements sql.Dialect for MySQL.
type MySQLDialect struct{}

func (d *MySQLDialect) DriverName() string { return "mysql" }

func (d *MySQLDialect) BuildDSN(desc domain.ConnectionDescriptor, sqlCfg *sqlcommon.SQLConfig) (string, error) {
	if desc.Host == "" {
		return "", fmt.Errorf("mysql descriptor %q has no host", desc.Name)
	}
	port := desc.Port
	if port <= 0 {
		port = 3306
	}

	cfg := mysqldriver.NewConfig()
	cfg.User = desc.Principal
	cfg.Passwd = desc.Secret
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", desc.Host, port)
	cfg.DBName = desc.Database
	cfg.AllowNativePasswords = true
	cfg.Collation = sqlCfg.Collation
	cfg.Params = map[string]string{
		"charset": sqlCfg.Charset,
	}

	if sqlCfg.ParseTime != nil && *sqlCfg.ParseTime {
		cfg.ParseTime = true
	}

	if desc.Timeout > 0 {
		cfg.Timeout = desc.Timeout
		cfg.ReadTimeout = desc.Timeout
	}

	// TLS
	switch strings.ToLower(sqlCfg.SSLMode) {
	case "true", "required", "require":
		cfg.TLSConfig = "true"
	case "skip-verify", "preferred":
		cfg.TLSConfig = "skip-verify"
	case "false", "disable", "":
		cfg.TLSConfig = "false"
	default:
		cfg.TLSConfig = sqlCfg.SSLMode
	}

	return cfg.FormatDSN(), nil
}

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MySQLDialect) Placeholder(n int) string {
	return "?"
}

func (d *MySQLDialect) TableExistsQuery() string {
	return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?"
}

func (d *MySQLDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`
}
