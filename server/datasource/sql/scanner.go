package sql

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// ScanRecords reads all rows from *sql.Rows into domain records.
func ScanRecords(rows *sql.Rows) ([]domain.Record, []string, error) {
	colNames, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("get columns: %w", err)
	}

	var result []domain.Record
	for rows.Next() {
		record, err := scanRecord(rows, colNames)
		if err != nil {
			return nil, nil, err
		}
		result = append(result, record)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, colNames, nil
}

func scanRecord(rows *sql.Rows, colNames []string) (domain.Record, error) {
	values := make([]interface{}, len(colNames))
	scanTargets := make([]interface{}, len(colNames))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	if err := rows.Scan(scanTargets...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	record := make(domain.Record, len(colNames))
	for i, name := range colNames {
		record[name] = normalizeValue(values[i])
	}

	return record, nil
}

// normalizeValue converts database/sql scanned values to JSON-friendly Go types.
func normalizeValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case float64:
		return val
	case float32:
		return float64(val)
	case bool:
		return val
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
