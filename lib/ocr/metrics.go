package ocr

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OCR instruments.
type Metrics struct {
	extractDuration metric.Float64Histogram
	pagesTotal      metric.Int64Counter
}

// NewMetrics creates the OCR instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	extractDuration, err := meter.Float64Histogram(
		"docclassify_ocr_extract_duration_seconds",
		metric.WithDescription("Time to extract text from a document"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pagesTotal, err := meter.Int64Counter(
		"docclassify_ocr_pages_total",
		metric.WithDescription("Total number of pages recognized"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		extractDuration: extractDuration,
		pagesTotal:      pagesTotal,
	}, nil
}

// RecordExtraction records one Extract call.
func (m *Metrics) RecordExtraction(ctx context.Context, kind Kind, engine, status string, pages int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("engine", engine),
		attribute.String("status", status),
	)
	m.extractDuration.Record(ctx, duration.Seconds(), attrs)
	if pages > 0 {
		m.pagesTotal.Add(ctx, int64(pages), attrs)
	}
}
