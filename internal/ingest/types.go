package ingest

import (
	"io"

	"fleetsum/pkg/contracts/domain"
)

// Schema selects which column set an uploaded file must carry.
type Schema int

const (
	// SchemaTrips expects raw trip rows: Date, Fleet, Amount.
	SchemaTrips Schema = iota
	// SchemaFleetTotals expects pre-aggregated rows: Fleet, Fleet Count, Total Amount.
	SchemaFleetTotals
)

// File pairs an uploaded file's declared name with its content stream.
type File struct {
	Name   string
	Reader io.Reader
}

// Status classifies the outcome of normalizing one file.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// FileResult reports the outcome of normalizing a single uploaded file.
// Coercion warnings are explicit outputs so silent data loss stays visible.
type FileResult struct {
	Name           string   `json:"name"`
	Status         Status   `json:"status"`
	Error          string   `json:"error,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Rows           int      `json:"rows"`
	DateWarnings   int      `json:"date_warnings"`
	AmountWarnings int      `json:"amount_warnings"`

	Trips  []domain.TripRecord `json:"-"`
	Totals []domain.FleetTotal `json:"-"`
}

// ProgressFunc receives the fraction of the batch completed and a status
// message after each file. Purely observational; errors in delivery must not
// affect normalization.
type ProgressFunc func(fraction float64, message string)
