package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/onkernel/docclassify/lib/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type documentKey struct{}

// documentInfo is filled in by handlers that process an upload so the
// access log and request metrics can report what was classified.
type documentInfo struct {
	mu    sync.Mutex
	kind  string
	label string
}

func (d *documentInfo) get() (kind, label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kind, d.label
}

// withDocumentInfo returns r with a documentInfo attached, reusing one set by
// an outer middleware.
func withDocumentInfo(r *http.Request) (*http.Request, *documentInfo) {
	if info, ok := r.Context().Value(documentKey{}).(*documentInfo); ok {
		return r, info
	}
	info := &documentInfo{}
	return r.WithContext(context.WithValue(r.Context(), documentKey{}, info)), info
}

// RecordDocument notes the upload kind and, once known, its label for the
// current request. It is a no-op outside AccessLogger or HTTPMetrics.
func RecordDocument(ctx context.Context, kind, label string) {
	info, ok := ctx.Value(documentKey{}).(*documentInfo)
	if !ok {
		return
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	if kind != "" {
		info.kind = kind
	}
	if label != "" {
		info.label = label
	}
}

// HTTPMetrics records request counts, latency and upload sizes.
type HTTPMetrics struct {
	requests    metric.Int64Counter
	latency     metric.Float64Histogram
	uploadBytes metric.Int64Histogram
}

// NewHTTPMetrics creates the request instruments.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := meter.Int64Counter(
		"docclassify_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"docclassify_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uploadBytes, err := meter.Int64Histogram(
		"docclassify_http_upload_bytes",
		metric.WithDescription("Declared size of uploaded request bodies"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requests:    requests,
		latency:     latency,
		uploadBytes: uploadBytes,
	}, nil
}

// Middleware records one data point per request, tagged with the route,
// the status class and the document kind when a handler reported one.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r, info := withDocumentInfo(r)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		kind, _ := info.get()
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", routePattern(r)),
			attribute.String("status_class", statusClass(rec.status)),
			attribute.String("document_kind", kind),
		)
		ctx := r.Context()
		m.requests.Add(ctx, 1, attrs)
		m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
		if r.Method == http.MethodPost && r.ContentLength > 0 {
			m.uploadBytes.Record(ctx, r.ContentLength, attrs)
		}
	})
}

// NoopHTTPMetrics is used when telemetry is disabled.
func NoopHTTPMetrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// AccessLogger logs one line per request. Classification requests also
// carry the document kind and label.
func AccessLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r, info := withDocumentInfo(r)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"route", routePattern(r),
				"status", rec.status,
				"bytes", rec.written,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if kind, label := info.get(); kind != "" {
				attrs = append(attrs, "document_kind", kind)
				if label != "" {
					attrs = append(attrs, "label", label)
				}
			}

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "request completed", attrs...)
		})
	}
}

// NewAccessLogger creates the API subsystem logger used for access logs.
func NewAccessLogger(otelHandler slog.Handler) *slog.Logger {
	return logger.NewSubsystemLogger(logger.SubsystemAPI, logger.NewConfig(), otelHandler)
}

// InjectLogger makes log available to handlers through logger.FromContext.
func InjectLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.AddToContext(r.Context(), log)))
		})
	}
}

// statusRecorder captures the status code and body size written.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// routePattern returns the chi route pattern, falling back to the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
