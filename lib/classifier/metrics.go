package classifier

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the classifier instruments.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
}

// NewMetrics creates the classifier instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"docclassify_classifier_request_duration_seconds",
		metric.WithDescription("Classification request duration including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		"docclassify_classifier_requests_total",
		metric.WithDescription("Total number of classification requests"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration: requestDuration,
		requestsTotal:   requestsTotal,
	}, nil
}

// RecordRequest records one Classify call.
func (m *Metrics) RecordRequest(ctx context.Context, result *Classification, err error, duration time.Duration) {
	status, label := "success", ""
	if err != nil {
		status = "failed"
	} else if result != nil {
		label = result.Label
	}

	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("label", label),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
	m.requestsTotal.Add(ctx, 1, attrs)
}
