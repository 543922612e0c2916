// Package ingest normalizes uploaded trip files into typed records.
//
// Each file is dispatched on its extension to a delimited-text or spreadsheet
// parser, validated against the requested schema, and coerced field by field.
// A broken file never aborts the batch: it yields a FileResult describing what
// went wrong and contributes zero rows.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"fleetsum/pkg/contracts/domain"
)

// dateLayouts are tried in order when parsing the Date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Normalizer parses uploaded files into typed trip records.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer with the given logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger: logger.With(slog.String("component", "ingest")),
	}
}

// ParseBatch normalizes every file in upload order. Files are processed
// sequentially; progress is reported after each one.
func (n *Normalizer) ParseBatch(ctx context.Context, files []File, schema Schema, progress ProgressFunc) []FileResult {
	results := make([]FileResult, 0, len(files))

	for i, f := range files {
		result := n.ParseFile(ctx, f, schema)
		results = append(results, result)

		if progress != nil {
			fraction := float64(i+1) / float64(len(files))
			progress(fraction, progressMessage(result))
		}
	}

	return results
}

// ParseFile normalizes a single uploaded file against the schema. The
// returned result always carries a status; parse failures are reported on the
// result rather than as an error so the caller can keep going.
func (n *Normalizer) ParseFile(ctx context.Context, f File, schema Schema) FileResult {
	result := FileResult{Name: f.Name, Status: StatusOK}

	var header []string
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".csv":
		header, rows, err = readCSV(f.Reader)
	case ".xlsx":
		header, rows, err = readXLSX(f.Reader)
	default:
		n.logger.WarnContext(ctx, "unsupported file extension, skipping",
			slog.String("file", f.Name))
		result.Status = StatusSkipped
		result.Error = fmt.Sprintf("unsupported file extension %q", filepath.Ext(f.Name))
		return result
	}

	if err != nil {
		n.logger.ErrorContext(ctx, "failed to read file",
			slog.String("file", f.Name),
			slog.String("error", err.Error()))
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	columns, missing := mapColumns(header, schema)
	if len(missing) > 0 {
		n.logger.ErrorContext(ctx, "file is missing required columns",
			slog.String("file", f.Name),
			slog.Any("missing", missing))
		result.Status = StatusError
		result.MissingColumns = missing
		result.Error = fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))
		return result
	}

	switch schema {
	case SchemaTrips:
		n.parseTripRows(rows, columns, &result)
	case SchemaFleetTotals:
		n.parseTotalRows(rows, columns, &result)
	}

	n.logger.InfoContext(ctx, "file normalized",
		slog.String("file", f.Name),
		slog.Int("rows", result.Rows),
		slog.Int("date_warnings", result.DateWarnings),
		slog.Int("amount_warnings", result.AmountWarnings))

	return result
}

// parseTripRows coerces raw trip rows. Unparsable dates become the zero
// sentinel and unparsable amounts become 0; both are counted, never dropped.
func (n *Normalizer) parseTripRows(rows [][]string, columns map[string]int, result *FileResult) {
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		record := domain.TripRecord{
			Fleet: cellAt(row, columns["fleet"]),
		}

		date, ok := parseDate(cellAt(row, columns["date"]))
		if !ok {
			result.DateWarnings++
		}
		record.Date = date

		amount, ok := parseAmount(cellAt(row, columns["amount"]))
		if !ok {
			result.AmountWarnings++
		}
		record.Amount = amount

		result.Trips = append(result.Trips, record)
		result.Rows++
	}
}

// parseTotalRows coerces pre-aggregated fleet summary rows.
func (n *Normalizer) parseTotalRows(rows [][]string, columns map[string]int, result *FileResult) {
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		total := domain.FleetTotal{
			Fleet: cellAt(row, columns["fleet"]),
		}

		count, ok := parseCount(cellAt(row, columns["fleet count"]))
		if !ok {
			result.AmountWarnings++
		}
		total.Count = count

		amount, ok := parseAmount(cellAt(row, columns["total amount"]))
		if !ok {
			result.AmountWarnings++
		}
		total.Amount = amount

		result.Totals = append(result.Totals, total)
		result.Rows++
	}
}

// mapColumns resolves required column positions from the header row and
// reports any that are absent. Matching is case-insensitive and ignores a
// trailing currency tag such as "(₦)".
func mapColumns(header []string, schema Schema) (map[string]int, []string) {
	required := requiredColumns(schema)

	columns := make(map[string]int, len(required))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, wanted := columns[name]; wanted {
			continue // first occurrence wins
		}
		for _, want := range required {
			if name == want {
				columns[name] = i
				break
			}
		}
	}

	var missing []string
	for _, want := range required {
		if _, ok := columns[want]; !ok {
			missing = append(missing, want)
		}
	}
	sort.Strings(missing)

	return columns, missing
}

// requiredColumns returns the normalized required column names for a schema.
func requiredColumns(schema Schema) []string {
	if schema == SchemaFleetTotals {
		return []string{"fleet", "fleet count", "total amount"}
	}
	return []string{"date", "fleet", "amount"}
}

// normalizeHeader lowercases, trims, and strips a parenthesized suffix so
// "Total Amount (₦)" matches "total amount".
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	if i := strings.Index(h, "("); i > 0 {
		h = strings.TrimSpace(h[:i])
	}
	return h
}

// parseDate parses a calendar date, trying a small set of common layouts.
// Returns the zero time and false when the value cannot be parsed.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Truncate to the calendar day; times within a day do not matter.
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseAmount parses a currency amount, tolerating thousands separators and a
// leading currency symbol. Returns 0 and false when unparsable.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₦")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCount parses an integer count, accepting decimal renderings like "3.0"
// that spreadsheet tools produce. Returns 0 and false when unparsable.
func parseCount(s string) (int64, bool) {
	v, ok := parseAmount(s)
	if !ok {
		return 0, false
	}
	return int64(v), true
}

// cellAt returns the trimmed cell at index i, or "" when the row is short.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// progressMessage renders the per-file status line sent to observers.
func progressMessage(result FileResult) string {
	switch result.Status {
	case StatusOK:
		return fmt.Sprintf("processed %s (%d rows)", result.Name, result.Rows)
	case StatusSkipped:
		return fmt.Sprintf("skipped %s: %s", result.Name, result.Error)
	default:
		return fmt.Sprintf("error in %s: %s", result.Name, result.Error)
	}
}
