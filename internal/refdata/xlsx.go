package refdata

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Header names recognised in the first row of a reference workbook.
var (
	keyHeaders      = []string{"account_last4", "last4", "last 4", "key", "account"}
	locationHeaders = []string{"location_id", "location", "id", "canonical_id"}
)

// LoadXLSX reads the first sheet of a workbook. When the first row names the
// key and location columns (e.g. "account_last4" / "location_id") those
// columns are used; otherwise column A is the key, column B the identifier,
// and every row is data.
func LoadXLSX(path string) (*Mapping, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("reference workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	keyCol, locCol, start := 0, 1, 0
	if len(rows) > 0 {
		if k, l, ok := headerColumns(rows[0]); ok {
			keyCol, locCol, start = k, l, 1
		}
	}

	var records []Record
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		records = append(records, Record{
			Key:      PadKey(cell(row, keyCol)),
			Location: cell(row, locCol),
		})
	}

	mapping, err := NewMapping(path, records)
	if err != nil {
		return nil, fmt.Errorf("invalid reference workbook %s: %w", path, err)
	}
	return mapping, nil
}

// headerColumns finds the key and location columns in a header row.
func headerColumns(row []string) (int, int, bool) {
	keyCol, locCol := -1, -1
	for i, value := range row {
		name := strings.ToLower(strings.TrimSpace(value))
		switch {
		case keyCol < 0 && contains(keyHeaders, name):
			keyCol = i
		case locCol < 0 && contains(locationHeaders, name):
			locCol = i
		}
	}
	return keyCol, locCol, keyCol >= 0 && locCol >= 0
}

func cell(row []string, index int) string {
	if index < len(row) {
		return strings.TrimSpace(row[index])
	}
	return ""
}

func isRowEmpty(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
