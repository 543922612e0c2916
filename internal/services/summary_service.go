// Package services orchestrates ingest, aggregation and export for one
// browser interaction. Each call is a pure function of the uploaded files and
// filter selections; nothing is retained between requests.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"fleetsum/internal/exporter"
	"fleetsum/internal/infrastructure"
	"fleetsum/internal/ingest"
	"fleetsum/internal/summary"
	"fleetsum/pkg/contracts/domain"
)

// ReportKind selects which styled export a download request wants.
type ReportKind string

const (
	ReportDaily    ReportKind = "daily"
	ReportFleet    ReportKind = "fleet"
	ReportWorkbook ReportKind = "workbook"
)

// ProgressBroadcaster receives per-file ingest progress updates.
type ProgressBroadcaster interface {
	BroadcastProgress(fraction float64, message string)
}

// Export is a generated workbook ready for download.
type Export struct {
	Filename string
	Data     []byte
}

// TripSummaryResult is the response payload for the trip summary mode.
type TripSummaryResult struct {
	Daily []summary.DailyRow  `json:"daily"`
	Fleet []summary.FleetRow  `json:"fleet"`
	Files []ingest.FileResult `json:"files"`
}

// CombineResult is the response payload for the combine mode.
type CombineResult struct {
	Fleet []summary.FleetRow  `json:"fleet"`
	Files []ingest.FileResult `json:"files"`
}

// SummaryService computes summaries and exports for uploaded batches.
type SummaryService struct {
	normalizer *ingest.Normalizer
	hub        ProgressBroadcaster
	metrics    *infrastructure.Metrics
	logger     *slog.Logger
}

// NewSummaryService creates the service. hub and metrics may be nil; both are
// observational and never affect results.
func NewSummaryService(hub ProgressBroadcaster, metrics *infrastructure.Metrics, logger *slog.Logger) *SummaryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryService{
		normalizer: ingest.NewNormalizer(logger),
		hub:        hub,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "summary_service")),
	}
}

// TripSummary normalizes raw trip files, applies the filter, and returns the
// daily subtotals and fleet summary tables along with per-file reports.
// An empty result is not an error; the caller renders "nothing to show".
func (s *SummaryService) TripSummary(ctx context.Context, files []ingest.File, filter summary.Filter) (*TripSummaryResult, error) {
	records, results := s.normalizeTrips(ctx, files)
	records = filter.Apply(records)

	s.logger.InfoContext(ctx, "trip summary computed",
		slog.Int("files", len(files)),
		slog.Int("records", len(records)))

	return &TripSummaryResult{
		Daily: summary.DailySubtotals(records),
		Fleet: summary.FleetTotals(records),
		Files: results,
	}, nil
}

// ExportTrips generates the styled workbook for the requested report kind
// from the same inputs as TripSummary.
func (s *SummaryService) ExportTrips(ctx context.Context, files []ingest.File, filter summary.Filter, kind ReportKind) (*Export, error) {
	records, _ := s.normalizeTrips(ctx, files)
	records = filter.Apply(records)

	daily := exporter.DailyTable(summary.DailySubtotals(records))
	fleet := exporter.FleetTable(exporter.SheetFleetSummary, summary.FleetTotals(records))

	var export Export
	var err error
	switch kind {
	case ReportDaily:
		export.Filename = exporter.FilenameDailySubtotals
		export.Data, err = exporter.WriteWorkbook(daily)
	case ReportFleet:
		export.Filename = exporter.FilenameFleetSummary
		export.Data, err = exporter.WriteWorkbook(fleet)
	case ReportWorkbook:
		export.Filename = exporter.FilenameWorkbook
		export.Data, err = exporter.WriteWorkbook(daily, fleet)
	default:
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", kind, err)
	}

	s.countExport(ctx)
	return &export, nil
}

// CombineSummary merges pre-aggregated fleet summary files.
func (s *SummaryService) CombineSummary(ctx context.Context, files []ingest.File) (*CombineResult, error) {
	totals, results := s.normalizeTotals(ctx, files)

	s.logger.InfoContext(ctx, "combined summary computed",
		slog.Int("files", len(files)),
		slog.Int("rows", len(totals)))

	return &CombineResult{
		Fleet: summary.CombineFleetTotals(totals),
		Files: results,
	}, nil
}

// ExportCombined generates the styled combined summary workbook.
func (s *SummaryService) ExportCombined(ctx context.Context, files []ingest.File) (*Export, error) {
	totals, _ := s.normalizeTotals(ctx, files)

	table := exporter.FleetTable(exporter.SheetCombined, summary.CombineFleetTotals(totals))
	data, err := exporter.WriteWorkbook(table)
	if err != nil {
		return nil, fmt.Errorf("export combined summary: %w", err)
	}

	s.countExport(ctx)
	return &Export{Filename: exporter.FilenameCombined, Data: data}, nil
}

// normalizeTrips runs the batch through the normalizer and concatenates rows
// in upload order.
func (s *SummaryService) normalizeTrips(ctx context.Context, files []ingest.File) ([]domain.TripRecord, []ingest.FileResult) {
	results := s.normalizer.ParseBatch(ctx, files, ingest.SchemaTrips, s.progressFunc())

	var records []domain.TripRecord
	for _, r := range results {
		records = append(records, r.Trips...)
	}
	s.countBatch(ctx, results)

	return records, results
}

// normalizeTotals is the combine-variant counterpart of normalizeTrips.
func (s *SummaryService) normalizeTotals(ctx context.Context, files []ingest.File) ([]domain.FleetTotal, []ingest.FileResult) {
	results := s.normalizer.ParseBatch(ctx, files, ingest.SchemaFleetTotals, s.progressFunc())

	var totals []domain.FleetTotal
	for _, r := range results {
		totals = append(totals, r.Totals...)
	}
	s.countBatch(ctx, results)

	return totals, results
}

// progressFunc bridges the normalizer's callback to the websocket hub.
func (s *SummaryService) progressFunc() ingest.ProgressFunc {
	if s.hub == nil {
		return nil
	}
	return func(fraction float64, message string) {
		s.hub.BroadcastProgress(fraction, message)
	}
}

// countBatch records ingest metrics for one batch.
func (s *SummaryService) countBatch(ctx context.Context, results []ingest.FileResult) {
	if s.metrics == nil {
		return
	}
	for _, r := range results {
		switch r.Status {
		case ingest.StatusOK:
			s.metrics.FilesIngested.Add(ctx, 1)
			s.metrics.RowsParsed.Add(ctx, int64(r.Rows))
		default:
			s.metrics.FileErrors.Add(ctx, 1)
		}
	}
}

// countExport records one served download.
func (s *SummaryService) countExport(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	s.metrics.ExportsServed.Add(ctx, 1)
}
