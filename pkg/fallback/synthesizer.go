// Package fallback produces the synthetic record returned when no source
// could answer.
package fallback

import "github.com/kasuganosora/statsgate/pkg/resource/domain"

// DefaultTemplate returns the built-in synthetic record fields.
func DefaultTemplate() map[string]interface{} {
	return map[string]interface{}{
		"products":    0,
		"listings":    0,
		"countries":   0,
		"stock_units": 0,
		"with_images": 0,
		"ebay_listed": 0,
		"status":      "unavailable",
		"note":        "live statistics are temporarily unavailable",
	}
}

// Synthesizer builds the emergency result set. It performs no I/O.
type Synthesizer struct {
	template domain.Record
}

// New creates a synthesizer with overrides merged over the default template.
// The provenance field cannot be overridden.
func New(overrides map[string]interface{}) *Synthesizer {
	tmpl := domain.Record(DefaultTemplate())
	for k, v := range overrides {
		if k == domain.ProvenanceKey {
			continue
		}
		tmpl[k] = v
	}
	return &Synthesizer{template: tmpl}
}

// Synthesize returns exactly one record tagged emergency_fallback.
// Each call returns a fresh copy.
func (s *Synthesizer) Synthesize() domain.ResultSet {
	tmpl := s.template
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	return domain.ResultSet{Records: []domain.Record{tmpl.WithProvenance(domain.SourceEmergencyFallback)}}
}
