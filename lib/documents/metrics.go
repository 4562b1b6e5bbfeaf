package documents

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the document pipeline instruments.
type Metrics struct {
	processDuration metric.Float64Histogram
	processedTotal  metric.Int64Counter
}

// NewMetrics creates the document pipeline instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	processDuration, err := meter.Float64Histogram(
		"docclassify_documents_process_duration_seconds",
		metric.WithDescription("End to end time to process a document"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	processedTotal, err := meter.Int64Counter(
		"docclassify_documents_processed_total",
		metric.WithDescription("Total number of documents processed"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		processDuration: processDuration,
		processedTotal:  processedTotal,
	}, nil
}

// RecordProcess records one Process call.
func (m *Metrics) RecordProcess(ctx context.Context, status, label string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("label", label),
	)
	m.processDuration.Record(ctx, duration.Seconds(), attrs)
	m.processedTotal.Add(ctx, 1, attrs)
}
