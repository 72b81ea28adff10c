package sql

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// SQLConfig holds per-descriptor SQL options read from ConnectionDescriptor.Options
type SQLConfig struct {
	// Connection pool. A request holds one handle, so the defaults stay small.
	MaxOpenConns    int `json:"max_open_conns,omitempty"`
	MaxIdleConns    int `json:"max_idle_conns,omitempty"`
	ConnMaxLifetime int `json:"conn_max_lifetime,omitempty"` // seconds

	// TLS/SSL
	SSLMode     string `json:"ssl_mode,omitempty"`
	SSLCert     string `json:"ssl_cert,omitempty"`
	SSLKey      string `json:"ssl_key,omitempty"`
	SSLRootCert string `json:"ssl_root_cert,omitempty"`

	// MySQL-specific
	Charset   string `json:"charset,omitempty"`
	Collation string `json:"collation,omitempty"`
	ParseTime *bool  `json:"parse_time,omitempty"`

	// PostgreSQL-specific
	Schema string `json:"schema,omitempty"`

	// SQLite-specific
	BusyTimeout int `json:"busy_timeout,omitempty"` // milliseconds
}

// ParseSQLConfig extracts SQLConfig from ConnectionDescriptor.Options
func ParseSQLConfig(d domain.ConnectionDescriptor) (*SQLConfig, error) {
	cfg := &SQLConfig{}

	if d.Options != nil {
		data, err := json.Marshal(d.Options)
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal sql config: %w", err)
		}
	}

	// Apply defaults
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 2
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 1
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 60
	}
	if cfg.Charset == "" {
		cfg.Charset = "utf8mb4"
	}
	if cfg.Collation == "" {
		cfg.Collation = "utf8mb4_unicode_ci"
	}
	if cfg.ParseTime == nil {
		t := true
		cfg.ParseTime = &t
	}
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 2000
	}

	return cfg, nil
}
