package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/nrednav/cuid2"
	"github.com/onkernel/docclassify/lib/classifier"
	"github.com/onkernel/docclassify/lib/ocr"
	"github.com/onkernel/docclassify/lib/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Manager runs uploaded documents through extraction, classification and
// storage.
type Manager interface {
	// Process extracts, classifies and stores one upload
	Process(ctx context.Context, upload Upload) (*Result, error)
}

// TextExtractor is satisfied by *ocr.Extractor.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (*ocr.Result, error)
}

var patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

type manager struct {
	extractor  TextExtractor
	classifier classifier.Classifier
	store      storage.Store
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// NewManager creates a document manager. meter may be nil.
func NewManager(
	extractor TextExtractor,
	cls classifier.Classifier,
	store storage.Store,
	logger *slog.Logger,
	meter metric.Meter,
) (Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &manager{
		extractor:  extractor,
		classifier: cls,
		store:      store,
		logger:     logger,
		tracer:     otel.Tracer("github.com/onkernel/docclassify/lib/documents"),
	}

	if meter != nil {
		metrics, err := NewMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		m.metrics = metrics
	}

	return m, nil
}

func (m *manager) Process(ctx context.Context, upload Upload) (*Result, error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "documents.Process", trace.WithAttributes(
		attribute.String("patient_id", upload.PatientID),
		attribute.Int("size_bytes", len(upload.Data)),
	))
	defer span.End()

	result, err := m.process(ctx, span, upload)

	status, label := "success", ""
	if err != nil {
		status = statusFor(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	} else {
		label = result.Classification.Label
	}
	if m.metrics != nil {
		m.metrics.RecordProcess(ctx, status, label, time.Since(start))
	}
	return result, err
}

func (m *manager) process(ctx context.Context, span trace.Span, upload Upload) (*Result, error) {
	// 1. Validate input
	filename := baseName(upload.Filename)
	if _, err := ocr.DetectKind(filename); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileType, upload.Filename)
	}
	if err := validatePatientID(upload.PatientID); err != nil {
		return nil, err
	}
	if len(upload.Data) == 0 {
		return nil, ErrEmptyDocument
	}

	id := cuid2.Generate()
	log := m.logger.With("document_id", id, "patient_id", upload.PatientID, "filename", filename)
	span.SetAttributes(attribute.String("document_id", id))

	// 2. Extract text
	extracted, err := m.extract(ctx, filename, upload.Data)
	if err != nil {
		log.ErrorContext(ctx, "text extraction failed", "error", err)
		return nil, err
	}
	log.InfoContext(ctx, "extracted text", "kind", extracted.Kind, "pages", len(extracted.Pages),
		"chars", len(extracted.Text), "truncated", extracted.Truncated, "duration_ms", extracted.Duration.Milliseconds())

	// 3. Classify
	classification, err := m.classify(ctx, extracted.Text)
	if err != nil {
		log.ErrorContext(ctx, "classification failed", "error", err)
		return nil, err
	}
	log.InfoContext(ctx, "classified document", "label", classification.Label, "confidence", classification.Confidence)

	// 4. Store
	key, err := storage.DocumentKey(upload.PatientID, classification.Label, filename)
	if err != nil {
		log.ErrorContext(ctx, "refusing storage key", "label", classification.Label, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}
	location, err := m.storeDocument(ctx, key, upload)
	if err != nil {
		log.ErrorContext(ctx, "storing document failed", "key", key, "error", err)
		return nil, err
	}

	log.InfoContext(ctx, "document processed", "location", location)
	return &Result{
		DocumentID:     id,
		PatientID:      upload.PatientID,
		Classification: *classification,
		StoragePath:    location,
		Status:         StatusProcessed,
		PageCount:      len(extracted.Pages),
	}, nil
}

func (m *manager) extract(ctx context.Context, filename string, data []byte) (*ocr.Result, error) {
	ctx, span := m.tracer.Start(ctx, "documents.extract")
	defer span.End()

	extracted, err := m.extractor.Extract(ctx, filename, data)
	switch {
	case err == nil:
	case errors.Is(err, ocr.ErrUnsupportedType):
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	case errors.Is(err, ocr.ErrInvalidImage), errors.Is(err, ocr.ErrNoPages):
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	default:
		return nil, fmt.Errorf("%w: extract: %w", ErrProcessingFailed, err)
	}

	span.SetAttributes(attribute.Int("pages", len(extracted.Pages)))
	if strings.TrimSpace(extracted.Text) == "" {
		return nil, ErrNoText
	}
	return extracted, nil
}

func (m *manager) classify(ctx context.Context, text string) (*classifier.Classification, error) {
	ctx, span := m.tracer.Start(ctx, "documents.classify")
	defer span.End()

	classification, err := m.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, classifier.ErrEmptyText) {
			return nil, ErrNoText
		}
		return nil, fmt.Errorf("%w: classify: %w", ErrProcessingFailed, err)
	}
	span.SetAttributes(attribute.String("label", classification.Label))
	return classification, nil
}

func (m *manager) storeDocument(ctx context.Context, key string, upload Upload) (string, error) {
	ctx, span := m.tracer.Start(ctx, "documents.store", trace.WithAttributes(
		attribute.String("backend", m.store.Backend()),
		attribute.String("key", key),
	))
	defer span.End()

	location, err := m.store.Put(ctx, key, upload.Data, upload.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: store: %w", ErrProcessingFailed, err)
	}
	return location, nil
}

func validatePatientID(id string) error {
	if !patientIDPattern.MatchString(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidPatientID, id)
	}
	return nil
}

// baseName strips any client supplied directories, including Windows style
// paths some browsers still send.
func baseName(filename string) string {
	return path.Base(strings.ReplaceAll(filename, `\`, "/"))
}

// statusFor maps an error to a low-cardinality metric status.
func statusFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPatientID), errors.Is(err, ErrInvalidFileType),
		errors.Is(err, ErrEmptyDocument), errors.Is(err, ErrUnreadableDocument):
		return "rejected"
	case errors.Is(err, ErrNoText):
		return "no_text"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}
