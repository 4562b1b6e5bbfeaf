//go:build !gosseract

package ocr

import "fmt"

// NewGosseractEngine is only available in binaries built with the gosseract
// tag, which links libtesseract through cgo.
func NewGosseractEngine(languages []string) (Engine, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags gosseract", ErrEngineUnavailable)
}
