package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onkernel/docclassify/cmd/api/config"
	"github.com/onkernel/docclassify/lib/classifier"
	"github.com/onkernel/docclassify/lib/documents"
	"github.com/onkernel/docclassify/lib/logger"
	"github.com/onkernel/docclassify/lib/ocr"
	hotel "github.com/onkernel/docclassify/lib/otel"
	"github.com/onkernel/docclassify/lib/storage"
	"go.opentelemetry.io/otel/metric"
)

// ProvideContext provides a base context
func ProvideContext() context.Context {
	return context.Background()
}

// ProvideOtel initializes OpenTelemetry. The cleanup flushes exporters.
func ProvideOtel(ctx context.Context, cfg *config.Config) (*hotel.Provider, func(), error) {
	provider, shutdown, err := hotel.Init(ctx, hotel.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
		Version:     cfg.Version,
		Env:         cfg.Env,
		Insecure:    cfg.OtelInsecure,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init otel: %w", err)
	}
	cleanup := func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("otel shutdown failed", "error", err)
		}
	}
	return provider, cleanup, nil
}

// ProvideMeter provides the meter, nil when telemetry is disabled
func ProvideMeter(p *hotel.Provider) metric.Meter {
	return p.Meter
}

// ProvideLogger provides the default structured logger and installs it as
// the slog default
func ProvideLogger(p *hotel.Provider) *slog.Logger {
	log := logger.NewSubsystemLogger(logger.SubsystemAPI, logger.NewConfig(), p.LogHandler)
	slog.SetDefault(log)
	return log
}

// ProvideOCREngine provides the OCR engine selected by OCR_ENGINE
func ProvideOCREngine(cfg *config.Config) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case config.OCREngineGosseract:
		return ocr.NewGosseractEngine(cfg.OCRLanguages)
	default:
		return ocr.NewTesseractCLI(cfg.TesseractPath, cfg.OCRLanguages), nil
	}
}

// ProvideRasterizer provides the PDF rasterizer
func ProvideRasterizer(cfg *config.Config) ocr.Rasterizer {
	return ocr.NewPdftoppm(cfg.PdftoppmPath, cfg.PDFDPI, cfg.PDFMaxPages)
}

// ProvideExtractor provides the OCR text extractor
func ProvideExtractor(cfg *config.Config, engine ocr.Engine, rasterizer ocr.Rasterizer, p *hotel.Provider, meter metric.Meter) (*ocr.Extractor, error) {
	log := logger.NewSubsystemLogger(logger.SubsystemOCR, logger.NewConfig(), p.LogHandler)
	return ocr.NewExtractor(ocr.Config{
		MaxConcurrent:  cfg.OCRMaxConcurrent,
		MaxImagePixels: 7016 * 9921, // roughly an A3 page at 600 DPI
		MaxPages:       cfg.PDFMaxPages,
	}, engine, rasterizer, log, meter)
}

// ProvideClassifier provides the zero-shot classifier client
func ProvideClassifier(cfg *config.Config, p *hotel.Provider, meter metric.Meter) (classifier.Classifier, error) {
	log := logger.NewSubsystemLogger(logger.SubsystemClassifier, logger.NewConfig(), p.LogHandler)
	return classifier.NewClient(classifier.Config{
		URL:           cfg.HFAPIURL,
		Token:         cfg.HFAPIToken,
		Labels:        cfg.ClassifierLabels,
		Timeout:       cfg.HFTimeout,
		RetryMax:      cfg.HFRetryMax,
		RetryWaitMin:  cfg.HFRetryWaitMin,
		RetryWaitMax:  cfg.HFRetryWaitMax,
		MaxInputChars: cfg.ClassifierMaxChars,
	}, log, meter)
}

// ProvideStore provides the document store selected by STORAGE_BACKEND
func ProvideStore(ctx context.Context, cfg *config.Config, p *hotel.Provider, meter metric.Meter) (storage.Store, error) {
	log := logger.NewSubsystemLogger(logger.SubsystemStorage, logger.NewConfig(), p.LogHandler)
	if cfg.StorageBackend == config.StorageBackendLocal {
		return storage.NewLocalStore(cfg.LocalStorageDir, log, meter)
	}
	return storage.NewSpacesStore(ctx, storage.SpacesConfig{
		Endpoint:  cfg.SpacesEndpoint,
		Region:    cfg.SpacesRegion,
		Bucket:    cfg.BucketName,
		AccessKey: cfg.SpacesKey,
		SecretKey: cfg.SpacesSecret,
		PathStyle: cfg.SpacesPathStyle,
		ACL:       cfg.SpacesACL,
	}, log, meter)
}

// ProvideDocumentManager provides the document pipeline
func ProvideDocumentManager(extractor *ocr.Extractor, cls classifier.Classifier, store storage.Store, p *hotel.Provider, meter metric.Meter) (documents.Manager, error) {
	log := logger.NewSubsystemLogger(logger.SubsystemDocuments, logger.NewConfig(), p.LogHandler)
	return documents.NewManager(extractor, cls, store, log, meter)
}
