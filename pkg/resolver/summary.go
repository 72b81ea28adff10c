package resolver

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// Summary is the fixed-key statistics object the dashboard renders.
// Every key is always present; missing data degrades to zero.
type Summary struct {
	Products   int64 `json:"products"`
	Listings   int64 `json:"listings"`
	Countries  int64 `json:"countries"`
	StockUnits int64 `json:"stock_units"`
	WithImages int64 `json:"with_images"`
	EbayListed int64 `json:"ebay_listed"`
}

// summaryKeys are the Summary JSON keys in declaration order.
var summaryKeys = []string{"products", "listings", "countries", "stock_units", "with_images", "ebay_listed"}

// SummaryFromStatistics reads the fixed keys from a statistics-shaped map.
func SummaryFromStatistics(m map[string]interface{}) Summary {
	return Summary{
		Products:   toInt64(m["products"]),
		Listings:   toInt64(m["listings"]),
		Countries:  toInt64(m["countries"]),
		StockUnits: toInt64(m["stock_units"]),
		WithImages: toInt64(m["with_images"]),
		EbayListed: toInt64(m["ebay_listed"]),
	}
}

// SummaryFromRecords derives the summary from a result set. A single
// statistics-shaped record is read directly; inventory rows are aggregated.
func SummaryFromRecords(rs domain.ResultSet) Summary {
	if rs.Len() == 1 && isStatisticsShaped(rs.Records[0]) {
		return SummaryFromStatistics(rs.Records[0])
	}

	var s Summary
	products := make(map[string]struct{})
	countries := make(map[string]struct{})
	for _, r := range rs.Records {
		if id, ok := r["id"]; ok && id != nil {
			products[stringify(id)] = struct{}{}
		} else {
			s.Products++
		}
		if c, ok := r["country"]; ok && c != nil && stringify(c) != "" {
			countries[stringify(c)] = struct{}{}
		}
		s.StockUnits += toInt64(r["quantity"])
		if toInt64(r["image_count"]) > 0 {
			s.WithImages++
		}
		if n := toInt64(r["ebay_listings"]); n > 0 {
			s.EbayListed++
			s.Listings += n
		}
	}
	s.Products += int64(len(products))
	s.Countries = int64(len(countries))
	return s
}

func isStatisticsShaped(r domain.Record) bool {
	for _, k := range summaryKeys {
		if _, ok := r[k]; ok {
			return true
		}
	}
	return false
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return int64(math.Round(float64(n)))
	case float64:
		return int64(math.Round(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return int64(math.Round(f))
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(math.Round(f))
		}
	case []byte:
		return toInt64(string(n))
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		b, _ := json.Marshal(s)
		return string(b)
	}
}
