package plan

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

func report(caps map[string]domain.Capability) domain.CapabilityReport {
	r := domain.NewCapabilityReport()
	for _, res := range DefaultResources() {
		r.Set(res.Name, caps[res.Name])
	}
	return r
}

func usable(cols ...string) domain.Capability {
	return domain.Capability{Exists: true, RowCount: 5, Columns: cols}
}

func ids(plans []domain.QueryPlan) []string {
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = p.ID
	}
	return out
}

func TestNewCatalog_Validation(t *testing.T) {
	base := domain.QueryPlan{ID: "base", Rank: 9, Template: "SELECT 1"}
	rich := domain.QueryPlan{ID: "rich", Rank: 0, Requires: []string{"a"}, Template: "SELECT 2"}

	tests := []struct {
		name    string
		action  string
		plans   []domain.QueryPlan
		wantErr string
	}{
		{"ok", "x", []domain.QueryPlan{base, rich}, ""},
		{"empty action", "", []domain.QueryPlan{base}, "action name"},
		{"no plans", "x", nil, "no plans"},
		{"no base", "x", []domain.QueryPlan{rich}, "no base plan"},
		{"duplicate id", "x", []domain.QueryPlan{base, {ID: "base", Rank: 1, Template: "SELECT 1"}}, "duplicate plan id"},
		{"duplicate rank", "x", []domain.QueryPlan{base, {ID: "other", Rank: 9, Template: "SELECT 1"}}, "rank 9"},
		{"reserved id", "x", []domain.QueryPlan{base, {ID: domain.SourceEmergencyFallback, Rank: 1, Template: "SELECT 1"}}, "reserved"},
		{"empty template", "x", []domain.QueryPlan{{ID: "base", Rank: 0}}, "empty template"},
		{"negative rank", "x", []domain.QueryPlan{{ID: "base", Rank: -1, Template: "SELECT 1"}}, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCatalog(tt.action, tt.plans)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, []string{"rich", "base"}, ids(c.Plans()))
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var cfgErr *domain.ErrInvalidConfig
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestCatalog_PlansAreCopies(t *testing.T) {
	c := DefaultCatalogs()[ActionInventory]
	plans := c.Plans()
	plans[0].Requires[0] = "mutated"
	plans[0].RequiresColumns[ResourceEbay][0] = "mutated"

	again := c.Plans()
	assert.Equal(t, ResourceProducts, again[0].Requires[0])
	assert.Equal(t, "product_id", again[0].RequiresColumns[ResourceEbay][0])
}

func TestCatalog_Resources(t *testing.T) {
	c := DefaultCatalogs()[ActionInventory]
	assert.ElementsMatch(t, []string{ResourceProducts, ResourceInventory, ResourceImages, ResourceEbay}, c.Resources())
}

func TestCatalogs_Actions(t *testing.T) {
	cs := DefaultCatalogs()
	assert.Equal(t, []string{ActionInventory, ActionStatistics}, cs.Actions())
	_, ok := cs.Get("unknown")
	assert.False(t, ok)
}

func TestSelect_AllAvailable(t *testing.T) {
	r := report(map[string]domain.Capability{
		ResourceProducts:  usable("id"),
		ResourceInventory: usable("product_id"),
		ResourceImages:    usable("product_id", "url"),
		ResourceEbay:      usable("product_id"),
	})

	got := Select(r, DefaultCatalogs()[ActionInventory])
	assert.Equal(t, []string{
		"products+inventory+images+ebay",
		"products+inventory+images",
		"products+inventory+ebay",
		"products+inventory_basic",
	}, ids(got))
}

func TestSelect_ScenarioB(t *testing.T) {
	r := report(map[string]domain.Capability{
		ResourceProducts:  usable("id"),
		ResourceInventory: usable("product_id"),
		ResourceImages:    {Exists: false},
		ResourceEbay:      {Exists: false},
	})

	got := Select(r, DefaultCatalogs()[ActionInventory])
	assert.Equal(t, []string{"products+inventory_basic"}, ids(got))
}

func TestSelect_EmptyReportYieldsBase(t *testing.T) {
	got := Select(domain.NewCapabilityReport(), DefaultCatalogs()[ActionStatistics])
	assert.Equal(t, []string{"statistics_basic"}, ids(got))
}

func TestSelect_MissingColumns(t *testing.T) {
	r := report(map[string]domain.Capability{
		ResourceProducts:  usable("id"),
		ResourceInventory: usable("product_id"),
		ResourceImages:    usable("url"),
		ResourceEbay:      usable("product_id"),
	})

	got := Select(r, DefaultCatalogs()[ActionInventory])
	assert.Equal(t, []string{"products+inventory+ebay", "products+inventory_basic"}, ids(got))
}

// 行数为0的资源永远不会被依赖它的计划使用
func TestSelect_ZeroRowsNeverSelected(t *testing.T) {
	catalogs := DefaultCatalogs()
	names := []string{ResourceProducts, ResourceInventory, ResourceImages, ResourceEbay}

	for mask := 0; mask < 1<<len(names); mask++ {
		caps := map[string]domain.Capability{}
		for i, n := range names {
			c := usable("product_id", "id")
			if mask&(1<<i) != 0 {
				c.RowCount = 0
			}
			caps[n] = c
		}
		r := report(caps)

		for _, action := range catalogs.Actions() {
			selected := Select(r, catalogs[action])
			require.NotEmpty(t, selected, "mask %b action %s", mask, action)
			for _, p := range selected {
				for _, req := range p.Requires {
					assert.NotZero(t, r.Get(req).RowCount, "mask %b plan %s uses empty %s", mask, p.ID, req)
				}
			}
			for i := 1; i < len(selected); i++ {
				assert.Less(t, selected[i-1].Rank, selected[i].Rank)
			}
		}
	}
}

func TestSelect_Idempotent(t *testing.T) {
	r := report(map[string]domain.Capability{
		ResourceProducts: usable("id"),
		ResourceEbay:     usable("product_id"),
	})
	c := DefaultCatalogs()[ActionStatistics]

	first := Select(r, c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Select(r, c))
	}
}

func TestRender_Tokens(t *testing.T) {
	p := domain.QueryPlan{
		ID:            "t",
		Template:      "SELECT * FROM {table:images} x {where} ORDER BY x.id {page}",
		SearchColumns: []string{"x.sku", "x.name"},
		Paged:         true,
	}
	pg := func(n int) string { return fmt.Sprintf("$%d", n) }

	query, args, err := Render(p, domain.Filters{Search: "lamp", Page: 3, PageSize: 20}, pg)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM product_images x WHERE (x.sku LIKE $1 ESCAPE '!' OR x.name LIKE $2 ESCAPE '!') ORDER BY x.id LIMIT 20 OFFSET 40", query)
	assert.Equal(t, []interface{}{"%lamp%", "%lamp%"}, args)

	query, args, err = Render(p, domain.Filters{}, pg)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM product_images x  ORDER BY x.id", query)
	assert.Empty(t, args)
}

func TestRender_AndTokenAndTables(t *testing.T) {
	p := domain.QueryPlan{
		ID:            "t",
		Template:      "SELECT * FROM {table:products} WHERE active = 1 {and}",
		SearchColumns: []string{"name"},
	}
	r := Renderer{Tables: map[string]string{ResourceProducts: "catalog_items"}}

	query, args, err := r.Render(p, domain.Filters{Search: " chair ", PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM catalog_items WHERE active = 1 AND (name LIKE ? ESCAPE '!')", query)
	assert.Equal(t, []interface{}{"%chair%"}, args)
}

func TestRender_EscapesWildcards(t *testing.T) {
	p := domain.QueryPlan{ID: "t", Template: "SELECT * FROM {table:products} {where}", SearchColumns: []string{"sku"}}

	tests := []struct {
		search string
		want   string
	}{
		{"%", "%!%%"},
		{"_", "%!_%"},
		{"100%", "%100!%%"},
		{"A_1", "%A!_1%"},
		{"wow!", "%wow!!%"},
		{`C:	mp`, `%C:	mp%`},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			_, args, err := Render(p, domain.Filters{Search: tt.search}, nil)
			require.NoError(t, err)
			assert.Equal(t, []interface{}{tt.want}, args)
		})
	}
}

func TestRender_UnknownToken(t *testing.T) {
	_, _, err := Render(domain.QueryPlan{ID: "t", Template: "SELECT {bogus}"}, domain.Filters{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template token")

	_, _, err = Render(domain.QueryPlan{ID: "t", Template: "SELECT * FROM {table}"}, domain.Filters{}, nil)
	assert.Error(t, err)
}

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name     string
		template string
		ok       bool
	}{
		{"select", "SELECT id FROM products {where} {page}", true},
		{"union", "SELECT id FROM products UNION SELECT product_id FROM inventory", true},
		{"update", "UPDATE products SET name = 'x'", false},
		{"delete", "DELETE FROM products", false},
		{"multi statement", "SELECT 1; DROP TABLE products", false},
		{"garbage", "SELEC id FROM", false},
		{"for update", "SELECT id FROM {table:products} FOR UPDATE", false},
		{"lock in share mode", "SELECT id FROM {table:products} LOCK IN SHARE MODE", false},
		{"union branch locks", "SELECT id FROM products UNION (SELECT product_id FROM inventory FOR UPDATE)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.QueryPlan{ID: tt.name, Template: tt.template, SearchColumns: []string{"name"}, Paged: true}
			err := ValidateReadOnly(p)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateCatalog_Defaults(t *testing.T) {
	for action, c := range DefaultCatalogs() {
		assert.NoError(t, ValidateCatalog(c), action)
		assert.NoError(t, ValidateCatalogPortable(c), action)
	}
}

func TestValidatePortable(t *testing.T) {
	tests := []struct {
		name     string
		template string
		ok       bool
	}{
		{"postgres cast", "SELECT id::int, updated_at FROM {table:products} {where} {page}", true},
		{"cte", "WITH t AS (SELECT id FROM products) SELECT * FROM t", true},
		{"update", "UPDATE products SET name = 'x'", false},
		{"cte with delete", "WITH d AS (DELETE FROM products RETURNING id) SELECT * FROM d", false},
		{"select into", "SELECT * INTO backup FROM products", false},
		{"for share", "SELECT id FROM products FOR SHARE", false},
		{"for no key update", "SELECT id FROM products FOR NO KEY UPDATE", false},
		{"multi statement", "SELECT 1; DROP TABLE products", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePortable(domain.QueryPlan{ID: tt.name, Template: tt.template, SearchColumns: []string{"name"}, Paged: true})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.Error(t, ValidateReadOnly(domain.QueryPlan{ID: "cast", Template: "SELECT id::int FROM products"}))
}

func TestDefaultPlans_TemplatesUseKnownTables(t *testing.T) {
	for _, p := range append(DefaultInventoryPlans(), DefaultStatisticsPlans()...) {
		query, _, err := Render(p, domain.Filters{Search: "x", Page: 1, PageSize: 5}, nil)
		require.NoError(t, err, p.ID)
		assert.NotContains(t, query, "{", p.ID)
		assert.True(t, strings.HasPrefix(query, "SELECT"), p.ID)
	}
}
