package plan

import "github.com/kasuganosora/statsgate/pkg/resource/domain"

// Built-in actions.
const (
	ActionInventory  = "inventory"
	ActionStatistics = "statistics"
)

// Built-in resource names.
const (
	ResourceProducts  = "products"
	ResourceInventory = "inventory"
	ResourceImages    = "images"
	ResourceEbay      = "ebay"
)

// DefaultResources returns the optional resources probed when none are configured.
func DefaultResources() []domain.Resource {
	return []domain.Resource{
		{Name: ResourceProducts, Table: "products"},
		{Name: ResourceInventory, Table: "inventory"},
		{Name: ResourceImages, Table: "product_images"},
		{Name: ResourceEbay, Table: "ebay_listings"},
	}
}

var inventorySearch = []string{"p.sku", "p.name"}

// DefaultInventoryPlans returns the built-in inventory plans, richest first.
func DefaultInventoryPlans() []domain.QueryPlan {
	return []domain.QueryPlan{
		{
			ID:       "products+inventory+images+ebay",
			Rank:     0,
			Requires: []string{ResourceProducts, ResourceInventory, ResourceImages, ResourceEbay},
			RequiresColumns: map[string][]string{
				ResourceImages: {"product_id"},
				ResourceEbay:   {"product_id"},
			},
			Template: `SELECT p.id, p.sku, p.name, p.country, COALESCE(i.quantity, 0) AS quantity,
	(SELECT COUNT(*) FROM {table:images} im WHERE im.product_id = p.id) AS image_count,
	(SELECT COUNT(*) FROM {table:ebay} e WHERE e.product_id = p.id) AS ebay_listings
FROM {table:products} p
LEFT JOIN {table:inventory} i ON i.product_id = p.id
{where}
ORDER BY p.id
{page}`,
			SearchColumns: inventorySearch,
			Paged:         true,
		},
		{
			ID:       "products+inventory+images",
			Rank:     1,
			Requires: []string{ResourceProducts, ResourceInventory, ResourceImages},
			RequiresColumns: map[string][]string{
				ResourceImages: {"product_id"},
			},
			Template: `SELECT p.id, p.sku, p.name, p.country, COALESCE(i.quantity, 0) AS quantity,
	(SELECT COUNT(*) FROM {table:images} im WHERE im.product_id = p.id) AS image_count
FROM {table:products} p
LEFT JOIN {table:inventory} i ON i.product_id = p.id
{where}
ORDER BY p.id
{page}`,
			SearchColumns: inventorySearch,
			Paged:         true,
		},
		{
			ID:       "products+inventory+ebay",
			Rank:     2,
			Requires: []string{ResourceProducts, ResourceInventory, ResourceEbay},
			RequiresColumns: map[string][]string{
				ResourceEbay: {"product_id"},
			},
			Template: `SELECT p.id, p.sku, p.name, p.country, COALESCE(i.quantity, 0) AS quantity,
	(SELECT COUNT(*) FROM {table:ebay} e WHERE e.product_id = p.id) AS ebay_listings
FROM {table:products} p
LEFT JOIN {table:inventory} i ON i.product_id = p.id
{where}
ORDER BY p.id
{page}`,
			SearchColumns: inventorySearch,
			Paged:         true,
		},
		{
			ID:   "products+inventory_basic",
			Rank: 3,
			Template: `SELECT p.id, p.sku, p.name, p.country, COALESCE(i.quantity, 0) AS quantity
FROM {table:products} p
LEFT JOIN {table:inventory} i ON i.product_id = p.id
{where}
ORDER BY p.id
{page}`,
			SearchColumns: inventorySearch,
			Paged:         true,
		},
	}
}

// DefaultStatisticsPlans returns the built-in statistics plans, richest first.
// Each yields exactly one row shaped like the dashboard summary.
func DefaultStatisticsPlans() []domain.QueryPlan {
	return []domain.QueryPlan{
		{
			ID:       "statistics_full",
			Rank:     0,
			Requires: []string{ResourceImages, ResourceEbay},
			RequiresColumns: map[string][]string{
				ResourceImages: {"product_id"},
				ResourceEbay:   {"product_id"},
			},
			Template: `SELECT
	(SELECT COUNT(*) FROM {table:products}) AS products,
	(SELECT COUNT(*) FROM {table:ebay}) AS listings,
	(SELECT COUNT(DISTINCT country) FROM {table:products}) AS countries,
	(SELECT COALESCE(SUM(quantity), 0) FROM {table:inventory}) AS stock_units,
	(SELECT COUNT(DISTINCT product_id) FROM {table:images}) AS with_images,
	(SELECT COUNT(DISTINCT product_id) FROM {table:ebay}) AS ebay_listed`,
		},
		{
			ID:       "statistics_listings",
			Rank:     1,
			Requires: []string{ResourceEbay},
			RequiresColumns: map[string][]string{
				ResourceEbay: {"product_id"},
			},
			Template: `SELECT
	(SELECT COUNT(*) FROM {table:products}) AS products,
	(SELECT COUNT(*) FROM {table:ebay}) AS listings,
	(SELECT COUNT(DISTINCT country) FROM {table:products}) AS countries,
	(SELECT COALESCE(SUM(quantity), 0) FROM {table:inventory}) AS stock_units,
	(SELECT COUNT(DISTINCT product_id) FROM {table:ebay}) AS ebay_listed`,
		},
		{
			ID:   "statistics_basic",
			Rank: 2,
			Template: `SELECT
	(SELECT COUNT(*) FROM {table:products}) AS products,
	(SELECT COUNT(DISTINCT country) FROM {table:products}) AS countries,
	(SELECT COALESCE(SUM(quantity), 0) FROM {table:inventory}) AS stock_units`,
		},
	}
}

// DefaultCatalogs builds the built-in catalogs.
func DefaultCatalogs() Catalogs {
	inventory, err := NewCatalog(ActionInventory, DefaultInventoryPlans())
	if err != nil {
		panic(err)
	}
	statistics, err := NewCatalog(ActionStatistics, DefaultStatisticsPlans())
	if err != nil {
		panic(err)
	}
	return Catalogs{ActionInventory: inventory, ActionStatistics: statistics}
}
