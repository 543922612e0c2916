package domain

import "time"

// TripRecord is a single normalized fleet trip row.
// A zero Date means the source value could not be parsed; the record is kept
// and grouped under the unknown-date bucket rather than dropped.
type TripRecord struct {
	Date   time.Time `json:"date"`
	Fleet  string    `json:"fleet"`
	Amount float64   `json:"amount"`
}

// HasDate reports whether the record carries a usable calendar date.
func (r TripRecord) HasDate() bool {
	return !r.Date.IsZero()
}

// FleetTotal is a pre-aggregated per-fleet row as found in previously
// exported summary workbooks (the combine variant of the input schema).
type FleetTotal struct {
	Fleet  string  `json:"fleet"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}
