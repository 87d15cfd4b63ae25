package google

import (
	"fmt"
	"strings"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

// parseRowIndex maps each transaction id found in column A to its 1-based
// row and returns the number of rows the table spans. The header row and
// cleared rows are skipped but still counted.
func parseRowIndex(values [][]interface{}) (map[string]int, int) {
	rows := make(map[string]int, len(values))
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		if i == 0 && strings.EqualFold(cols[0], ports.Columns[0]) {
			continue
		}
		rows[cols[0]] = i + 1
	}
	return rows, len(values)
}

// rowValues lays a transaction out for the sheet. The amount goes in as a
// number so the column sums.
func rowValues(t core.Transaction) []any {
	cols := ports.RowValues(t)
	out := make([]any, len(cols))
	for i, v := range cols {
		out[i] = v
	}
	out[ports.AmountColumn] = t.Amount.InexactFloat64()
	return out
}

func headerValues() []any {
	out := make([]any, len(ports.Columns))
	for i, h := range ports.Columns {
		out[i] = h
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
