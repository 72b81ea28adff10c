// Package plan holds the ranked query-plan catalogs and picks the plans a
// capability report can support.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// Catalog is an immutable, rank-ordered list of plans for one action.
type Catalog struct {
	action string
	plans  []domain.QueryPlan
}

// NewCatalog validates plans and returns them sorted by rank.
// Ids and ranks must be unique and at least one base plan must exist.
func NewCatalog(action string, plans []domain.QueryPlan) (*Catalog, error) {
	if strings.TrimSpace(action) == "" {
		return nil, domain.NewErrInvalidConfig("catalogs", "action name is empty")
	}
	if len(plans) == 0 {
		return nil, domain.NewErrInvalidConfig("catalogs."+action, "no plans")
	}

	ids := make(map[string]struct{}, len(plans))
	ranks := make(map[int]string, len(plans))
	hasBase := false
	sorted := make([]domain.QueryPlan, 0, len(plans))

	for _, p := range plans {
		key := fmt.Sprintf("catalogs.%s.%s", action, p.ID)
		if p.ID == "" {
			return nil, domain.NewErrInvalidConfig("catalogs."+action, "plan without id")
		}
		if p.ID == domain.SourceBridge || p.ID == domain.SourceEmergencyFallback {
			return nil, domain.NewErrInvalidConfig(key, "plan id is reserved")
		}
		if _, dup := ids[p.ID]; dup {
			return nil, domain.NewErrInvalidConfig(key, "duplicate plan id")
		}
		if other, dup := ranks[p.Rank]; dup {
			return nil, domain.NewErrInvalidConfig(key, fmt.Sprintf("rank %d already used by %s", p.Rank, other))
		}
		if p.Rank < 0 {
			return nil, domain.NewErrInvalidConfig(key, "rank must not be negative")
		}
		if strings.TrimSpace(p.Template) == "" {
			return nil, domain.NewErrInvalidConfig(key, "empty template")
		}
		ids[p.ID] = struct{}{}
		ranks[p.Rank] = p.ID
		if p.IsBase() {
			hasBase = true
		}
		sorted = append(sorted, clonePlan(p))
	}

	if !hasBase {
		return nil, domain.NewErrInvalidConfig("catalogs."+action, "no base plan without requirements")
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return &Catalog{action: action, plans: sorted}, nil
}

// Action returns the action the catalog serves.
func (c *Catalog) Action() string {
	return c.action
}

// Plans returns a copy of the plans, richest first.
func (c *Catalog) Plans() []domain.QueryPlan {
	out := make([]domain.QueryPlan, len(c.plans))
	for i, p := range c.plans {
		out[i] = clonePlan(p)
	}
	return out
}

// Resources returns the resource names any plan requires, in first-use order.
func (c *Catalog) Resources() []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	for _, p := range c.plans {
		for _, r := range p.Requires {
			add(r)
		}
		for r := range p.RequiresColumns {
			add(r)
		}
	}
	return names
}

// Catalogs maps actions to catalogs.
type Catalogs map[string]*Catalog

// Get returns the catalog for action.
func (cs Catalogs) Get(action string) (*Catalog, bool) {
	c, ok := cs[action]
	return c, ok
}

// Actions returns the sorted action names.
func (cs Catalogs) Actions() []string {
	names := make([]string, 0, len(cs))
	for name := range cs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clonePlan(p domain.QueryPlan) domain.QueryPlan {
	out := p
	out.Requires = append([]string(nil), p.Requires...)
	out.SearchColumns = append([]string(nil), p.SearchColumns...)
	if p.RequiresColumns != nil {
		out.RequiresColumns = make(map[string][]string, len(p.RequiresColumns))
		for k, v := range p.RequiresColumns {
			out.RequiresColumns[k] = append([]string(nil), v...)
		}
	}
	return out
}
