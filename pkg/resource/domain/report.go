package domain

// Capability is what a probe learned about one optional resource.
type Capability struct {
	Exists   bool     `json:"exists"`
	RowCount int64    `json:"row_count"`
	Columns  []string `json:"columns,omitempty"`
	// Reason holds the downgraded probe failure, if any.
	Reason string `json:"reason,omitempty"`
}

// Usable reports whether plans may depend on the resource.
func (c Capability) Usable() bool {
	return c.Exists && c.RowCount > 0
}

// CapabilityReport maps resource names to capabilities in probe order.
// A report is built per request and must never be cached.
type CapabilityReport struct {
	Resources []string              `json:"resources"`
	Entries   map[string]Capability `json:"entries"`
}

// NewCapabilityReport creates an empty report.
func NewCapabilityReport() CapabilityReport {
	return CapabilityReport{Entries: make(map[string]Capability)}
}

// Set records the capability for name, keeping first-seen order.
func (r *CapabilityReport) Set(name string, c Capability) {
	if r.Entries == nil {
		r.Entries = make(map[string]Capability)
	}
	if _, ok := r.Entries[name]; !ok {
		r.Resources = append(r.Resources, name)
	}
	r.Entries[name] = c
}

// Get returns the capability for name. Unknown resources are absent.
func (r CapabilityReport) Get(name string) Capability {
	return r.Entries[name]
}

// Satisfies reports whether name exists and has at least one row.
func (r CapabilityReport) Satisfies(name string) bool {
	return r.Entries[name].Usable()
}

// HasColumns reports whether every column is exposed by name.
func (r CapabilityReport) HasColumns(name string, columns ...string) bool {
	c, ok := r.Entries[name]
	if !ok {
		return false
	}
	have := make(map[string]struct{}, len(c.Columns))
	for _, col := range c.Columns {
		have[col] = struct{}{}
	}
	for _, col := range columns {
		if _, ok := have[col]; !ok {
			return false
		}
	}
	return true
}
