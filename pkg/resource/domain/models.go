package domain

import (
	"fmt"
	"time"
)

// DriverType identifies the database/sql backend a descriptor points at.
type DriverType string

// String returns the driver name.
func (t DriverType) String() string {
	return string(t)
}

const (
	// DriverMySQL MySQL backend
	DriverMySQL DriverType = "mysql"
	// DriverPostgreSQL PostgreSQL backend
	DriverPostgreSQL DriverType = "postgresql"
	// DriverSQLite SQLite backend (database is the file path or DSN)
	DriverSQLite DriverType = "sqlite"
)

// ProvenanceKey is the record field that names the path which produced it.
const ProvenanceKey = "provenance"

const (
	// SourceBridge tags data produced by the external computation bridge.
	SourceBridge = "bridge"
	// SourceEmergencyFallback tags the synthetic fallback record.
	SourceEmergencyFallback = "emergency_fallback"
)

// ConnectionDescriptor is one candidate set of credentials for the relational store.
// Descriptors are built from configuration for each request and never persisted.
type ConnectionDescriptor struct {
	Name      string                 `json:"name" yaml:"name"`
	Driver    DriverType             `json:"driver" yaml:"driver"`
	Host      string                 `json:"host,omitempty" yaml:"host,omitempty"`
	Port      int                    `json:"port,omitempty" yaml:"port,omitempty"`
	Database  string                 `json:"database,omitempty" yaml:"database,omitempty"`
	Principal string                 `json:"principal,omitempty" yaml:"principal,omitempty"`
	Secret    string                 `json:"-" yaml:"-"`
	Timeout   time.Duration          `json:"-" yaml:"-"`
	Options   map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// String describes the descriptor without its secret.
func (d ConnectionDescriptor) String() string {
	name := d.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s(%s://%s@%s:%d/%s)", name, d.Driver, d.Principal, d.Host, d.Port, d.Database)
}

// Resource is a named optional schema resource backed by a table.
type Resource struct {
	Name  string `json:"name" yaml:"name"`
	Table string `json:"table" yaml:"table"`
}

// Record is one row returned to the dashboard. It always carries ProvenanceKey.
type Record map[string]interface{}

// Provenance returns the record's provenance tag, or "".
func (r Record) Provenance() string {
	s, _ := r[ProvenanceKey].(string)
	return s
}

// WithProvenance returns a copy of the record tagged with tag.
func (r Record) WithProvenance(tag string) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[ProvenanceKey] = tag
	return out
}

// ResultSet is the ordered output of one resolution path.
type ResultSet struct {
	Records []Record `json:"records"`
}

// Len returns the number of records.
func (rs ResultSet) Len() int {
	return len(rs.Records)
}

// Tag returns a copy of the result set with every record tagged.
func (rs ResultSet) Tag(provenance string) ResultSet {
	out := ResultSet{Records: make([]Record, len(rs.Records))}
	for i, r := range rs.Records {
		out.Records[i] = r.WithProvenance(provenance)
	}
	return out
}

// Filters are the caller-supplied narrowing parameters of a request.
type Filters struct {
	Search   string `json:"search,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// Offset returns the zero-based row offset for the page.
func (f Filters) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Statistics is the decoded object produced by the bridge.
type Statistics map[string]interface{}
