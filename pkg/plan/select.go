package plan

import "github.com/kasuganosora/statsgate/pkg/resource/domain"

// Select returns the catalog plans whose requirements the report satisfies,
// richest first. A required resource must exist with at least one row, and
// required columns must be exposed. Base plans have no requirements, so every
// catalog built by NewCatalog yields at least one candidate.
func Select(report domain.CapabilityReport, catalog *Catalog) []domain.QueryPlan {
	var selected []domain.QueryPlan
	for _, p := range catalog.plans {
		if satisfied(report, p) {
			selected = append(selected, clonePlan(p))
		}
	}
	return selected
}

func satisfied(report domain.CapabilityReport, p domain.QueryPlan) bool {
	for _, r := range p.Requires {
		if !report.Satisfies(r) {
			return false
		}
	}
	for r, cols := range p.RequiresColumns {
		if !report.Satisfies(r) || !report.HasColumns(r, cols...) {
			return false
		}
	}
	return true
}
