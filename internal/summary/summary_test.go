package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetsum/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func trip(date, fleet string, amount float64) domain.TripRecord {
	r := domain.TripRecord{Fleet: fleet, Amount: amount}
	if date != "" {
		r.Date = day(date)
	}
	return r
}

// TestDailySubtotals verifies per-date grouping with a Subtotal row per date.
func TestDailySubtotals(t *testing.T) {
	t.Run("groups by date and fleet with subtotal rows", func(t *testing.T) {
		records := []domain.TripRecord{
			trip("2024-03-02", "Lagos", 300),
			trip("2024-03-01", "Lagos", 100),
			trip("2024-03-01", "Abuja", 250),
			trip("2024-03-01", "Lagos", 150),
		}

		rows := DailySubtotals(records)
		require.Len(t, rows, 5)

		assert.Equal(t, DailyRow{Date: "2024-03-01", Fleet: "Abuja", Count: 1, Amount: 250}, rows[0])
		assert.Equal(t, DailyRow{Date: "2024-03-01", Fleet: "Lagos", Count: 2, Amount: 250}, rows[1])
		assert.Equal(t, DailyRow{Date: "2024-03-01", Fleet: MarkerSubtotal, Count: 3, Amount: 500}, rows[2])
		assert.Equal(t, DailyRow{Date: "2024-03-02", Fleet: "Lagos", Count: 1, Amount: 300}, rows[3])
		assert.Equal(t, DailyRow{Date: "2024-03-02", Fleet: MarkerSubtotal, Count: 1, Amount: 300}, rows[4])
	})

	t.Run("unknown date bucket sorts first", func(t *testing.T) {
		records := []domain.TripRecord{
			trip("2024-03-01", "Lagos", 100),
			trip("", "Lagos", 50),
		}

		rows := DailySubtotals(records)
		require.Len(t, rows, 4)

		assert.Equal(t, UnknownDate, rows[0].Date)
		assert.Equal(t, "Lagos", rows[0].Fleet)
		assert.Equal(t, DailyRow{Date: UnknownDate, Fleet: MarkerSubtotal, Count: 1, Amount: 50}, rows[1])
		assert.Equal(t, "2024-03-01", rows[2].Date)
	})

	t.Run("empty input yields empty table", func(t *testing.T) {
		assert.Empty(t, DailySubtotals(nil))
	})

	t.Run("subtotal sums every row of its date", func(t *testing.T) {
		records := []domain.TripRecord{
			trip("2024-01-01", "A", 1.5),
			trip("2024-01-01", "B", 2.5),
			trip("2024-01-01", "C", 3),
		}

		rows := DailySubtotals(records)
		require.Len(t, rows, 4)
		last := rows[len(rows)-1]
		assert.Equal(t, MarkerSubtotal, last.Fleet)
		assert.Equal(t, int64(3), last.Count)
		assert.InDelta(t, 7.0, last.Amount, 1e-9)
	})
}

// TestFleetTotals verifies full-range aggregation with the Grand Total row.
func TestFleetTotals(t *testing.T) {
	t.Run("aggregates across dates with grand total last", func(t *testing.T) {
		records := []domain.TripRecord{
			trip("2024-03-01", "Lagos", 100),
			trip("2024-03-02", "Lagos", 300),
			trip("2024-03-01", "Abuja", 250),
		}

		rows := FleetTotals(records)
		require.Len(t, rows, 3)

		assert.Equal(t, FleetRow{Fleet: "Abuja", Count: 1, Amount: 250}, rows[0])
		assert.Equal(t, FleetRow{Fleet: "Lagos", Count: 2, Amount: 400}, rows[1])
		assert.Equal(t, FleetRow{Fleet: MarkerGrandTotal, Count: 3, Amount: 650}, rows[2])
	})

	t.Run("empty input yields no rows at all", func(t *testing.T) {
		assert.Nil(t, FleetTotals(nil))
	})

	t.Run("unknown dates still count toward totals", func(t *testing.T) {
		records := []domain.TripRecord{
			trip("", "Lagos", 10),
			trip("2024-03-01", "Lagos", 20),
		}

		rows := FleetTotals(records)
		require.Len(t, rows, 2)
		assert.Equal(t, FleetRow{Fleet: "Lagos", Count: 2, Amount: 30}, rows[0])
	})
}

// TestCombineFleetTotals verifies merging of pre-aggregated summary files.
func TestCombineFleetTotals(t *testing.T) {
	t.Run("sums counts and amounts per fleet", func(t *testing.T) {
		totals := []domain.FleetTotal{
			{Fleet: "Lagos", Count: 3, Amount: 500},
			{Fleet: "Abuja", Count: 2, Amount: 250},
			{Fleet: "Lagos", Count: 1, Amount: 100},
		}

		rows := CombineFleetTotals(totals)
		require.Len(t, rows, 3)

		assert.Equal(t, FleetRow{Fleet: "Abuja", Count: 2, Amount: 250}, rows[0])
		assert.Equal(t, FleetRow{Fleet: "Lagos", Count: 4, Amount: 600}, rows[1])
		assert.Equal(t, FleetRow{Fleet: MarkerGrandTotal, Count: 6, Amount: 850}, rows[2])
	})

	t.Run("single file passes through", func(t *testing.T) {
		rows := CombineFleetTotals([]domain.FleetTotal{{Fleet: "Lagos", Count: 5, Amount: 700}})
		require.Len(t, rows, 2)
		assert.Equal(t, FleetRow{Fleet: "Lagos", Count: 5, Amount: 700}, rows[0])
		assert.Equal(t, FleetRow{Fleet: MarkerGrandTotal, Count: 5, Amount: 700}, rows[1])
	})

	t.Run("empty input yields no rows", func(t *testing.T) {
		assert.Nil(t, CombineFleetTotals(nil))
	})
}

// TestFilter verifies date-range and fleet filtering.
func TestFilter(t *testing.T) {
	records := []domain.TripRecord{
		trip("2024-03-01", "Lagos", 100),
		trip("2024-03-02", "Abuja", 200),
		trip("2024-03-03", "Lagos", 300),
		trip("", "Lagos", 400),
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"zero filter keeps everything", Filter{}, 4},
		{"from bound is inclusive", Filter{From: day("2024-03-02")}, 2},
		{"to bound is inclusive", Filter{To: day("2024-03-02")}, 2},
		{"both bounds", Filter{From: day("2024-03-02"), To: day("2024-03-02")}, 1},
		{"fleet selection", Filter{Fleets: []string{"Abuja"}}, 1},
		{"fleet selection keeps unknown dates", Filter{Fleets: []string{"Lagos"}}, 3},
		{"date bound excludes unparsable dates", Filter{From: day("2024-01-01")}, 3},
		{"no match", Filter{Fleets: []string{"Kano"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(records)
			assert.Len(t, got, tt.want)
		})
	}

	t.Run("input order is preserved", func(t *testing.T) {
		got := Filter{Fleets: []string{"Lagos"}}.Apply(records)
		require.Len(t, got, 3)
		assert.Equal(t, float64(100), got[0].Amount)
		assert.Equal(t, float64(300), got[1].Amount)
		assert.Equal(t, float64(400), got[2].Amount)
	})
}
