package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_WithProvenance(t *testing.T) {
	r := Record{"sku": "A-1", "quantity": int64(3)}
	tagged := r.WithProvenance("products+inventory_basic")

	assert.Equal(t, "products+inventory_basic", tagged.Provenance())
	assert.Equal(t, "", r.Provenance(), "original record must stay untouched")
	assert.Equal(t, "A-1", tagged["sku"])
}

func TestResultSet_Tag(t *testing.T) {
	rs := ResultSet{Records: []Record{{"a": 1}, {"a": 2}}}
	tagged := rs.Tag(SourceBridge)

	assert.Equal(t, 2, tagged.Len())
	for _, r := range tagged.Records {
		assert.Equal(t, SourceBridge, r.Provenance())
	}
	assert.Empty(t, rs.Records[0].Provenance())
}

func TestFilters_Offset(t *testing.T) {
	tests := []struct {
		filters Filters
		want    int
	}{
		{Filters{}, 0},
		{Filters{Page: 1, PageSize: 25}, 0},
		{Filters{Page: 3, PageSize: 25}, 50},
		{Filters{Page: 2, PageSize: 0}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.filters.Offset(), "%+v", tt.filters)
	}
}

func TestCapabilityReport(t *testing.T) {
	report := NewCapabilityReport()
	report.Set("images", Capability{Exists: true, RowCount: 0, Columns: []string{"product_id", "url"}})
	report.Set("ebay", Capability{Exists: true, RowCount: 12, Columns: []string{"product_id", "country"}})
	report.Set("images", Capability{Exists: true, RowCount: 4, Columns: []string{"product_id", "url"}})

	assert.Equal(t, []string{"images", "ebay"}, report.Resources)
	assert.True(t, report.Satisfies("images"))
	assert.True(t, report.Satisfies("ebay"))
	assert.False(t, report.Satisfies("missing"))
	assert.True(t, report.HasColumns("ebay", "country"))
	assert.False(t, report.HasColumns("ebay", "price"))
	assert.False(t, report.HasColumns("missing"))
}

func TestCapability_Usable(t *testing.T) {
	assert.False(t, Capability{Exists: true}.Usable())
	assert.False(t, Capability{RowCount: 5}.Usable())
	assert.True(t, Capability{Exists: true, RowCount: 1}.Usable())
}

func TestQueryPlan_IsBase(t *testing.T) {
	assert.True(t, QueryPlan{ID: "base"}.IsBase())
	assert.False(t, QueryPlan{ID: "rich", Requires: []string{"images"}}.IsBase())
	assert.False(t, QueryPlan{ID: "cols", RequiresColumns: map[string][]string{"ebay": {"country"}}}.IsBase())
}
