package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config holds extractor limits.
type Config struct {
	// MaxConcurrent bounds OCR engine invocations across all requests.
	MaxConcurrent int
	// MaxImagePixels rejects decoded images larger than this; zero disables the check.
	MaxImagePixels int
	// MaxPages is the page cap the rasterizer applies. Reaching it marks the
	// result truncated; zero disables the check.
	MaxPages int
}

// Extractor turns uploaded bytes into text.
type Extractor struct {
	engine     Engine
	rasterizer Rasterizer
	sem        *semaphore.Weighted
	maxWorkers int
	maxPixels  int
	maxPages   int
	logger     *slog.Logger
	metrics    *Metrics
}

// NewExtractor creates an extractor. meter may be nil.
func NewExtractor(cfg Config, engine Engine, rasterizer Rasterizer, logger *slog.Logger, meter metric.Meter) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	e := &Extractor{
		engine:     engine,
		rasterizer: rasterizer,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		maxWorkers: cfg.MaxConcurrent,
		maxPixels:  cfg.MaxImagePixels,
		maxPages:   cfg.MaxPages,
		logger:     logger,
	}

	if meter != nil {
		metrics, err := NewMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		e.metrics = metrics
	}

	return e, nil
}

// Extract recognizes the text of a PDF or image upload. Page texts are
// joined with newlines in page order.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (*Result, error) {
	start := time.Now()

	kind, err := DetectKind(filename)
	if err != nil {
		return nil, err
	}

	result, err := e.extract(ctx, kind, filename, data)

	status := "success"
	pages := 0
	if err != nil {
		status = "failed"
	} else {
		pages = len(result.Pages)
		result.Duration = time.Since(start)
	}
	if e.metrics != nil {
		e.metrics.RecordExtraction(ctx, kind, e.engine.Name(), status, pages, time.Since(start))
	}
	return result, err
}

func (e *Extractor) extract(ctx context.Context, kind Kind, filename string, data []byte) (*Result, error) {
	workDir, err := os.MkdirTemp("", "docclassify-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create work dir: %v", ErrExtractionFailed, err)
	}
	defer os.RemoveAll(workDir)

	// Never trust the client filename for the on-disk name, only its extension.
	inputPath := filepath.Join(workDir, "input"+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(inputPath, data, 0600); err != nil {
		return nil, fmt.Errorf("%w: write upload: %v", ErrExtractionFailed, err)
	}

	var pagePaths []string
	truncated := false
	switch kind {
	case KindPDF:
		pagesDir := filepath.Join(workDir, "pages")
		if err := os.Mkdir(pagesDir, 0700); err != nil {
			return nil, fmt.Errorf("%w: create pages dir: %v", ErrExtractionFailed, err)
		}
		pagePaths, err = e.rasterizer.Rasterize(ctx, inputPath, pagesDir)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: rasterize pdf: %v", ErrExtractionFailed, err)
		}
		if len(pagePaths) == 0 {
			return nil, ErrNoPages
		}
		if e.maxPages > 0 && len(pagePaths) >= e.maxPages {
			truncated = true
			e.logger.WarnContext(ctx, "pdf reached the page limit, later pages are not recognized",
				"pages", len(pagePaths), "max_pages", e.maxPages)
		}
	default:
		if err := e.checkImage(inputPath); err != nil {
			return nil, err
		}
		pagePaths = []string{inputPath}
	}

	e.logger.DebugContext(ctx, "recognizing pages", "kind", kind, "pages", len(pagePaths), "engine", e.engine.Name())

	pages, err := e.recognizePages(ctx, pagePaths)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}

	return &Result{
		Kind:      kind,
		Text:      strings.Join(texts, "\n"),
		Pages:     pages,
		Truncated: truncated,
	}, nil
}

// checkImage decodes the image header to reject corrupt or oversized files
// before handing them to the engine.
func (e *Extractor) checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open image: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if e.maxPixels > 0 && cfg.Width*cfg.Height > e.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds pixel limit", ErrInvalidImage, cfg.Width, cfg.Height)
	}
	return nil
}

// recognizePages runs the engine over every page, holding a slot of the
// shared semaphore for each engine call.
func (e *Extractor) recognizePages(ctx context.Context, paths []string) ([]Page, error) {
	pages := make([]Page, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxWorkers)
	for i, path := range paths {
		g.Go(func() error {
			if err := e.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer e.sem.Release(1)

			text, err := e.engine.Recognize(gctx, path)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i] = Page{Number: i + 1, Text: text}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return pages, nil
}
