package storage

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the storage instruments.
type Metrics struct {
	uploadDuration metric.Float64Histogram
	uploadBytes    metric.Int64Counter
}

// NewMetrics creates the storage instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	uploadDuration, err := meter.Float64Histogram(
		"docclassify_storage_upload_duration_seconds",
		metric.WithDescription("Time to store a document"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uploadBytes, err := meter.Int64Counter(
		"docclassify_storage_upload_bytes_total",
		metric.WithDescription("Total bytes written to document storage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		uploadDuration: uploadDuration,
		uploadBytes:    uploadBytes,
	}, nil
}

// RecordUpload records one Put call.
func (m *Metrics) RecordUpload(ctx context.Context, backend string, err error, size int, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	)
	m.uploadDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		m.uploadBytes.Add(ctx, int64(size), attrs)
	}
}
