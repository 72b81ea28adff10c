// Package export renders a dashboard response as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/statsgate/pkg/resolver"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// 工作表名称
const (
	SheetRecords = "Records"
	SheetSummary = "Summary"
)

// Columns 返回记录的列顺序：已排序的普通列，provenance 列在最后
func Columns(records []domain.Record) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range records {
		for k := range r {
			if k == domain.ProvenanceKey {
				continue
			}
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return append(cols, domain.ProvenanceKey)
}

// Workbook 构建包含记录表和汇总表的工作簿
func Workbook(resp resolver.Response) (*excelize.File, error) {
	f := excelize.NewFile()

	// 默认工作表重命名为记录表
	if err := f.SetSheetName(f.GetSheetName(0), SheetRecords); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeRecords(f, resp.Data); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSummary(f, resp); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write 将工作簿写入 w
func Write(w io.Writer, resp resolver.Response) error {
	f, err := Workbook(resp)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveFile 将工作簿保存到 path
func SaveFile(path string, resp resolver.Response) error {
	f, err := Workbook(resp)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRecords(f *excelize.File, records []domain.Record) error {
	cols := Columns(records)

	// 写入列头
	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetRecords, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	// 数据行从第2行开始
	for i, r := range records {
		rowNum := i + 2
		for j, col := range cols {
			val, ok := r[col]
			if !ok || val == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			if err := f.SetCellValue(SheetRecords, cell, val); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}
	return nil
}

func writeSummary(f *excelize.File, resp resolver.Response) error {
	s := resp.Statistics
	rows := [][2]interface{}{
		{"source", resp.Source},
		{"success", resp.Success},
		{"count", resp.Count},
		{"timestamp", resp.Timestamp},
		{"request_id", resp.RequestID},
		{"message", resp.Message},
		{"products", s.Products},
		{"listings", s.Listings},
		{"countries", s.Countries},
		{"stock_units", s.StockUnits},
		{"with_images", s.WithImages},
		{"ebay_listed", s.EbayListed},
	}

	for i, row := range rows {
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+1), &[]interface{}{row[0], row[1]}); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}
