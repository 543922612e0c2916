// Package exporter serializes aggregated tables into styled xlsx workbooks.
package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// currencyFormat renders amounts with the naira symbol, thousands separators
// and two decimal places.
const currencyFormat = `"₦"#,##0.00`

// headerFillColor matches the summary reports operators already know.
const headerFillColor = "007ACC"

// Table is one sheet of an export: a header row plus data rows. Cell values
// keep their native types so numeric cells stay numeric in the workbook.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]interface{}
}

// styleSet holds the style IDs registered on one workbook.
type styleSet struct {
	header       int
	bold         int
	currency     int
	boldCurrency int
}

// WriteWorkbook serializes the tables into an in-memory xlsx byte buffer.
// Styling is bound to column names, not positions: every column whose header
// contains "Amount" is currency-formatted, and rows whose Fleet cell is a
// Subtotal or Grand Total marker are bold.
func WriteWorkbook(tables ...Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyleSet(f)
	if err != nil {
		return nil, fmt.Errorf("failed to register styles: %w", err)
	}

	for i, table := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", table.Sheet); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(table.Sheet); err != nil {
				return nil, fmt.Errorf("failed to create sheet %q: %w", table.Sheet, err)
			}
		}
		if err := writeTable(f, table, styles); err != nil {
			return nil, fmt.Errorf("failed to write sheet %q: %w", table.Sheet, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeTable writes one sheet's header and rows, applying styles.
func writeTable(f *excelize.File, table Table, styles styleSet) error {
	for col, h := range table.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(table.Sheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(table.Sheet, 1, 1, styles.header); err != nil {
		return err
	}

	currencyCols := currencyColumns(table.Headers)
	fleetCol := fleetColumn(table.Headers)

	for i, row := range table.Rows {
		rowNum := i + 2
		marker := isMarkerRow(row, fleetCol)

		for col, val := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(table.Sheet, cell, val); err != nil {
				return err
			}

			style := 0
			switch {
			case marker && currencyCols[col]:
				style = styles.boldCurrency
			case marker:
				style = styles.bold
			case currencyCols[col]:
				style = styles.currency
			}
			if style != 0 {
				if err := f.SetCellStyle(table.Sheet, cell, cell, style); err != nil {
					return err
				}
			}
		}
	}

	if len(table.Headers) > 0 {
		last, err := excelize.ColumnNumberToName(len(table.Headers))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(table.Sheet, "A", last, 18); err != nil {
			return err
		}
	}

	return nil
}

// newStyleSet registers the workbook styles once per file.
func newStyleSet(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
	})
	if err != nil {
		return s, err
	}

	s.bold, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return s, err
	}

	numFmt := currencyFormat
	s.currency, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
	})
	if err != nil {
		return s, err
	}

	s.boldCurrency, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &numFmt,
	})
	return s, err
}

// currencyColumns marks the indices of columns that carry amounts.
func currencyColumns(headers []string) map[int]bool {
	cols := make(map[int]bool)
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), "amount") {
			cols[i] = true
		}
	}
	return cols
}

// fleetColumn returns the index of the Fleet column, or -1.
func fleetColumn(headers []string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), "Fleet") {
			return i
		}
	}
	return -1
}

// isMarkerRow reports whether the row is a synthetic Subtotal or Grand Total
// row, judged by its Fleet cell.
func isMarkerRow(row []interface{}, fleetCol int) bool {
	if fleetCol < 0 || fleetCol >= len(row) {
		return false
	}
	s, ok := row[fleetCol].(string)
	if !ok {
		return false
	}
	return s == "Subtotal" || s == "Grand Total"
}
