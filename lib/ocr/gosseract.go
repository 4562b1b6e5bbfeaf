//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine recognizes images in-process through libtesseract.
// A client is created per call; gosseract clients are not safe for
// concurrent use.
type GosseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewGosseractEngine returns the libtesseract-backed engine.
func NewGosseractEngine(languages []string) (Engine, error) {
	return &GosseractEngine{languages: languages, clientFactory: gosseract.NewClient}, nil
}

func (e *GosseractEngine) Name() string { return "gosseract" }

func (e *GosseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
