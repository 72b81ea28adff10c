package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/statsgate/pkg/resolver"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

func sampleResponse() resolver.Response {
	return resolver.Response{
		Success: true,
		Data: []domain.Record{
			{"id": int64(1), "sku": "LAMP-1", "quantity": int64(4), domain.ProvenanceKey: "products+inventory_basic"},
			{"id": int64(2), "sku": "DESK-2", "country": "DE", domain.ProvenanceKey: "products+inventory_basic"},
		},
		Count:      2,
		Source:     "products+inventory_basic",
		Message:    "ok",
		Timestamp:  "2026-01-02T03:04:05Z",
		RequestID:  "req-1",
		Statistics: resolver.Summary{Products: 2, Countries: 1, StockUnits: 4},
	}
}

func TestColumns(t *testing.T) {
	cols := Columns(sampleResponse().Data)
	assert.Equal(t, []string{"country", "id", "quantity", "sku", domain.ProvenanceKey}, cols)

	assert.Equal(t, []string{domain.ProvenanceKey}, Columns(nil))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResponse()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetRecords, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetRecords)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"country", "id", "quantity", "sku", "provenance"}, rows[0])
	assert.Equal(t, []string{"", "1", "4", "LAMP-1", "products+inventory_basic"}, rows[1])
	assert.Equal(t, []string{"DE", "2", "", "DESK-2", "products+inventory_basic"}, rows[2])

	source, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "products+inventory_basic", source)

	products, err := f.GetCellValue(SheetSummary, "B7")
	require.NoError(t, err)
	assert.Equal(t, "2", products)
}

func TestSaveFile_Fallback(t *testing.T) {
	resp := resolver.Response{
		Success: true,
		Data:    []domain.Record{{"status": "unavailable", domain.ProvenanceKey: domain.SourceEmergencyFallback}},
		Count:   1,
		Source:  domain.SourceEmergencyFallback,
	}
	path := filepath.Join(t.TempDir(), "dashboard.xlsx")
	require.NoError(t, SaveFile(path, resp))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetRecords)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"status", "provenance"}, {"unavailable", "emergency_fallback"}}, rows)
}
