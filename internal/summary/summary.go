// Package summary computes the grouped subtotal and grand-total tables from
// normalized trip records.
package summary

import (
	"sort"
	"time"

	"fleetsum/pkg/contracts/domain"
)

// Marker values used for the synthetic total rows.
const (
	MarkerSubtotal   = "Subtotal"
	MarkerGrandTotal = "Grand Total"
)

// UnknownDate is the display value for records whose date failed to parse.
const UnknownDate = "unknown"

// DailyRow is one row of the daily subtotals table. Fleet is the fleet name,
// or MarkerSubtotal for the synthetic per-date total row.
type DailyRow struct {
	Date   string  `json:"date"`
	Fleet  string  `json:"fleet"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// FleetRow is one row of the fleet summary table. Fleet is the fleet name,
// or MarkerGrandTotal for the synthetic final row.
type FleetRow struct {
	Fleet  string  `json:"fleet"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// Filter restricts records before aggregation. Zero bounds are unbounded;
// an empty fleet list selects all fleets. Bounds are inclusive.
type Filter struct {
	From   time.Time
	To     time.Time
	Fleets []string
}

// Apply returns the records that pass the filter, preserving input order.
// When a date bound is set, records without a parsable date are excluded,
// since they cannot satisfy an inclusive range.
func (f Filter) Apply(records []domain.TripRecord) []domain.TripRecord {
	if f.From.IsZero() && f.To.IsZero() && len(f.Fleets) == 0 {
		return records
	}

	fleets := make(map[string]bool, len(f.Fleets))
	for _, fleet := range f.Fleets {
		fleets[fleet] = true
	}

	var out []domain.TripRecord
	for _, r := range records {
		if len(fleets) > 0 && !fleets[r.Fleet] {
			continue
		}
		if !f.From.IsZero() && (!r.HasDate() || r.Date.Before(f.From)) {
			continue
		}
		if !f.To.IsZero() && (!r.HasDate() || r.Date.After(f.To)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type groupKey struct {
	date  string
	fleet string
}

// DailySubtotals groups records by (date, fleet) and emits, per date in
// ascending order, the fleet rows (fleet name ascending) followed by a
// Subtotal row for that date. Records with no parsable date group under the
// unknown-date bucket, which sorts first. Empty input yields an empty table.
func DailySubtotals(records []domain.TripRecord) []DailyRow {
	groups := make(map[groupKey]*DailyRow)
	for _, r := range records {
		key := groupKey{date: dateKey(r), fleet: r.Fleet}
		row, ok := groups[key]
		if !ok {
			row = &DailyRow{Date: displayDate(key.date), Fleet: r.Fleet}
			groups[key] = row
		}
		row.Count++
		row.Amount += r.Amount
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	// ISO dates sort lexicographically; the empty sentinel sorts first.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].fleet < keys[j].fleet
	})

	var rows []DailyRow
	var subtotal DailyRow
	flush := func() {
		if subtotal.Count > 0 {
			rows = append(rows, subtotal)
		}
	}

	for _, key := range keys {
		row := groups[key]
		if subtotal.Count > 0 && subtotal.Date != row.Date {
			flush()
			subtotal = DailyRow{}
		}
		if subtotal.Count == 0 {
			subtotal = DailyRow{Date: row.Date, Fleet: MarkerSubtotal}
		}
		rows = append(rows, *row)
		subtotal.Count += row.Count
		subtotal.Amount += row.Amount
	}
	flush()

	return rows
}

// FleetTotals groups records by fleet across the whole filtered table,
// fleets ascending, with one Grand Total row pinned last. Empty input yields
// an empty table.
func FleetTotals(records []domain.TripRecord) []FleetRow {
	totals := make(map[string]*FleetRow)
	for _, r := range records {
		row, ok := totals[r.Fleet]
		if !ok {
			row = &FleetRow{Fleet: r.Fleet}
			totals[r.Fleet] = row
		}
		row.Count++
		row.Amount += r.Amount
	}

	return finishFleetRows(totals)
}

// CombineFleetTotals merges pre-aggregated fleet rows from multiple files,
// summing counts and amounts per fleet, with a Grand Total row pinned last.
func CombineFleetTotals(totals []domain.FleetTotal) []FleetRow {
	merged := make(map[string]*FleetRow)
	for _, t := range totals {
		row, ok := merged[t.Fleet]
		if !ok {
			row = &FleetRow{Fleet: t.Fleet}
			merged[t.Fleet] = row
		}
		row.Count += t.Count
		row.Amount += t.Amount
	}

	return finishFleetRows(merged)
}

// finishFleetRows sorts fleet rows ascending and appends the grand total.
func finishFleetRows(totals map[string]*FleetRow) []FleetRow {
	if len(totals) == 0 {
		return nil
	}

	rows := make([]FleetRow, 0, len(totals)+1)
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Fleet < rows[j].Fleet
	})

	grand := FleetRow{Fleet: MarkerGrandTotal}
	for _, row := range rows {
		grand.Count += row.Count
		grand.Amount += row.Amount
	}
	rows = append(rows, grand)

	return rows
}

// dateKey returns the sortable grouping key for a record's date.
func dateKey(r domain.TripRecord) string {
	if !r.HasDate() {
		return ""
	}
	return r.Date.Format("2006-01-02")
}

// displayDate maps the sentinel key to its display value.
func displayDate(key string) string {
	if key == "" {
		return UnknownDate
	}
	return key
}
