// Package export renders a wallet's transactions as a spreadsheet download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"ledger/internal/core"
)

const SheetName = "Transactions"

var Header = []string{"date", "note", "amount", "currency", "category", "tags"}

// Row is one exported transaction.
type Row struct {
	Date     string
	Note     string
	Amount   string
	Currency string
	Category string
	Tags     string
}

// Rows flattens transactions in the order given.
func Rows(txs []core.Transaction) []Row {
	out := make([]Row, 0, len(txs))
	for _, t := range txs {
		r := Row{
			Date:     t.Date.UTC().Format("2006-01-02T15:04:05Z"),
			Note:     t.Note,
			Amount:   core.FormatAmount(t.Amount),
			Currency: strings.ToUpper(string(t.Currency)),
		}
		if t.Category != nil {
			r.Category = t.Category.Name
		}
		names := make([]string, 0, len(t.Tags))
		for _, tag := range t.Tags {
			names = append(names, tag.Name)
		}
		r.Tags = strings.Join(names, ", ")
		out = append(out, r)
	}
	return out
}

// Values returns the row in header order.
func (r Row) Values() []string {
	return []string{r.Date, r.Note, r.Amount, r.Currency, r.Category, r.Tags}
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. Amounts are numeric cells so the
// column can be summed in a spreadsheet.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, r := range rows {
		row := i + 2
		values := []any{r.Date, r.Note, nil, r.Currency, r.Category, r.Tags}
		if amount, err := core.ParseAmount(r.Amount); err == nil {
			values[2] = amount.InexactFloat64()
		} else {
			values[2] = r.Amount
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	f.SetColWidth(SheetName, "A", "A", 22)
	f.SetColWidth(SheetName, "B", "B", 30)
	f.SetColWidth(SheetName, "C", "D", 12)
	f.SetColWidth(SheetName, "E", "F", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
