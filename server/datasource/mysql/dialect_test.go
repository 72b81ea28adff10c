package mysql

import (
	"strings"
	"testing"
	"time"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	sqlcommon "github.com/kasuganosora/statsgate/server/datasource/sql"
)

func TestMySQLDialect_DriverName(t *testing.T) {
	d := &MySQLDialect{}
	if d.DriverName() != "mysql" {
		t.Errorf("expected mysql, got %s", d.DriverName())
	}
}

func TestMySQLDialect_QuoteIdentifier(t *testing.T) {
	d := &MySQLDialect{}
	tests := []struct {
		input, want string
	}{
		{"products", "`products`"},
		{"my`table", "`my``table`"},
		{"order", "`order`"},
	}
	for _, tt := range tests {
		got := d.QuoteIdentifier(tt.input)
		if got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMySQLDialect_Placeholder(t *testing.T) {
	d := &MySQLDialect{}
	for i := 1; i <= 5; i++ {
		if d.Placeholder(i) != "?" {
			t.Errorf("Placeholder(%d) = %q, want ?", i, d.Placeholder(i))
		}
	}
}

func TestMySQLDialect_BuildDSN(t *testing.T) {
	d := &MySQLDialect{}
	desc := domain.ConnectionDescriptor{
		Name:      "primary",
		Host:      "localhost",
		Port:      3306,
		Principal: "root",
		Secret:    "pass",
		Database:  "testdb",
		Timeout:   2 * time.Second,
	}
	sqlCfg, err := sqlcommon.ParseSQLConfig(desc)
	if err != nil {
		t.Fatalf("ParseSQLConfig error: %v", err)
	}

	dsn, err := d.BuildDSN(desc, sqlCfg)
	if err != nil {
		t.Fatalf("BuildDSN error: %v", err)
	}
	for _, substr := range []string{"root", "pass", "localhost", "3306", "testdb", "utf8mb4", "timeout=2s"} {
		if !strings.Contains(dsn, substr) {
			t.Errorf("DSN %q should contain %q", dsn, substr)
		}
	}
}

func TestMySQLDialect_BuildDSN_DefaultPortAndMissingHost(t *testing.T) {
	d := &MySQLDialect{}
	sqlCfg, _ := sqlcommon.ParseSQLConfig(domain.ConnectionDescriptor{})

	dsn, err := d.BuildDSN(domain.ConnectionDescriptor{Host: "db", Database: "dbX"}, sqlCfg)
	if err != nil {
		t.Fatalf("BuildDSN error: %v", err)
	}
	if !strings.Contains(dsn, "db:3306") {
		t.Errorf("DSN %q should use default port", dsn)
	}

	if _, err := d.BuildDSN(domain.ConnectionDescriptor{Name: "nohost"}, sqlCfg); err == nil {
		t.Error("expected error for missing host")
	}
}

func TestMySQLDialect_MetadataQueries(t *testing.T) {
	d := &MySQLDialect{}
	if !strings.Contains(d.TableExistsQuery(), "INFORMATION_SCHEMA.TABLES") {
		t.Errorf("unexpected table query %q", d.TableExistsQuery())
	}
	if !strings.Contains(d.ColumnsQuery(), "ORDER BY ORDINAL_POSITION") {
		t.Errorf("unexpected columns query %q", d.ColumnsQuery())
	}
}
