package exporter

import (
	"fleetsum/internal/summary"
)

// Report filenames by mode.
const (
	FilenameDailySubtotals = "Daily_Subtotals.xlsx"
	FilenameFleetSummary   = "Fleet_Summary.xlsx"
	FilenameWorkbook       = "Fleet_Summary_Subtotal.xlsx"
	FilenameCombined       = "Combined_Fleet_Summary.xlsx"
)

// Sheet names used in exported workbooks.
const (
	SheetDailySubtotals = "Daily Subtotals"
	SheetFleetSummary   = "Fleet Summary"
	SheetCombined       = "FleetSummary"
)

// amountHeader carries the currency tag operators expect in the reports.
const amountHeader = "Total Amount (₦)"

// DailyTable converts the daily subtotals rows into an exportable table.
func DailyTable(rows []summary.DailyRow) Table {
	t := Table{
		Sheet:   SheetDailySubtotals,
		Headers: []string{"Date", "Fleet", "Fleet Count", amountHeader},
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Date, r.Fleet, r.Count, r.Amount})
	}
	return t
}

// FleetTable converts fleet summary rows into an exportable table.
func FleetTable(sheet string, rows []summary.FleetRow) Table {
	t := Table{
		Sheet:   sheet,
		Headers: []string{"Fleet", "Fleet Count", amountHeader},
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Fleet, r.Count, r.Amount})
	}
	return t
}
