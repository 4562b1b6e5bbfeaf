package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TesseractCLI runs the tesseract binary once per image.
type TesseractCLI struct {
	Path      string
	Languages []string
}

// NewTesseractCLI resolves the tesseract binary on PATH, falling back to
// the given path as-is.
func NewTesseractCLI(path string, languages []string) *TesseractCLI {
	if resolved, err := exec.LookPath(path); err == nil {
		path = resolved
	}
	return &TesseractCLI{Path: path, Languages: languages}
}

func (t *TesseractCLI) Name() string { return "tesseract" }

// Recognize runs `tesseract <image> stdout -l <langs>` and returns stdout.
func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout"}
	if len(t.Languages) > 0 {
		args = append(args, "-l", strings.Join(t.Languages, "+"))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Available reports whether the binary can be executed.
func (t *TesseractCLI) Available(ctx context.Context) bool {
	return exec.CommandContext(ctx, t.Path, "--version").Run() == nil
}
