package domain

// QueryPlan is one entry of a static, richest-first plan catalog.
type QueryPlan struct {
	ID   string `json:"id" yaml:"id"`
	Rank int    `json:"rank" yaml:"rank"`
	// Requires lists resources that must exist with rows.
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	// RequiresColumns lists columns a resource must expose.
	RequiresColumns map[string][]string `json:"requires_columns,omitempty" yaml:"requires_columns,omitempty"`
	// Template is a read-only SELECT; see plan.Render for tokens.
	Template      string   `json:"template" yaml:"template"`
	SearchColumns []string `json:"search_columns,omitempty" yaml:"search_columns,omitempty"`
	Paged         bool     `json:"paged,omitempty" yaml:"paged,omitempty"`
}

// IsBase reports whether the plan has no preconditions.
func (p QueryPlan) IsBase() bool {
	return len(p.Requires) == 0 && len(p.RequiresColumns) == 0
}
