// Package ocr extracts text from uploaded documents. PDFs are rasterized to
// page images with Poppler's pdftoppm and every page image is recognized by
// a Tesseract engine.
package ocr

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrInvalidImage      = errors.New("file is not a readable image")
	ErrNoPages           = errors.New("document has no pages")
	ErrExtractionFailed  = errors.New("text extraction failed")
	ErrEngineUnavailable = errors.New("OCR engine unavailable")
)

// Kind is the document family an upload belongs to.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

var extensionKinds = map[string]Kind{
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".bmp":  KindImage,
}

// DetectKind classifies a filename by its (case-insensitive) extension.
func DetectKind(filename string) (Kind, error) {
	kind, ok := extensionKinds[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return kind, nil
}

// Engine recognizes the text in a single image file.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Rasterizer renders every page of a PDF to an image file inside outDir and
// returns the image paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Page is the text recognized on one page (1-based).
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Result is the outcome of extracting a document.
type Result struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
	// Truncated is set when a PDF had at least as many pages as the
	// rasterizer page limit.
	Truncated bool          `json:"truncated"`
	Duration  time.Duration `json:"duration"`
}
