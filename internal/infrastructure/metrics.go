package infrastructure

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"fleetsum/pkg/contracts"
)

// MeterName is the instrumentation scope for all application metrics
const MeterName = "fleetsum"

// Metrics holds the application-level counters exposed on /metrics
type Metrics struct {
	MeterProvider *sdkmetric.MeterProvider
	Meter         metric.Meter

	HTTPRequestsTotal metric.Int64Counter
	FilesIngested     metric.Int64Counter
	RowsParsed        metric.Int64Counter
	FileErrors        metric.Int64Counter
	ExportsServed     metric.Int64Counter
}

// InitMetrics wires the OpenTelemetry meter provider to a Prometheus exporter
// and registers the application counters. The returned handler serves the
// Prometheus scrape endpoint.
func InitMetrics() (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	meter := mp.Meter(MeterName, metric.WithInstrumentationVersion(contracts.Version))

	m := &Metrics{
		MeterProvider: mp,
		Meter:         meter,
	}

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"fleetsum_http_requests_total",
		metric.WithDescription("Total HTTP requests served"),
	); err != nil {
		return nil, nil, err
	}

	if m.FilesIngested, err = meter.Int64Counter(
		"fleetsum_files_ingested_total",
		metric.WithDescription("Uploaded files successfully normalized"),
	); err != nil {
		return nil, nil, err
	}

	if m.RowsParsed, err = meter.Int64Counter(
		"fleetsum_rows_parsed_total",
		metric.WithDescription("Trip rows parsed from uploaded files"),
	); err != nil {
		return nil, nil, err
	}

	if m.FileErrors, err = meter.Int64Counter(
		"fleetsum_file_errors_total",
		metric.WithDescription("Uploaded files skipped due to errors"),
	); err != nil {
		return nil, nil, err
	}

	if m.ExportsServed, err = meter.Int64Counter(
		"fleetsum_exports_served_total",
		metric.WithDescription("Styled workbook downloads served"),
	); err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}
