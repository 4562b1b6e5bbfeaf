package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Pdftoppm rasterizes PDFs with Poppler's pdftoppm.
type Pdftoppm struct {
	Path     string
	DPI      int
	MaxPages int
}

// NewPdftoppm resolves the pdftoppm binary on PATH, falling back to the
// given path as-is.
func NewPdftoppm(path string, dpi, maxPages int) *Pdftoppm {
	if resolved, err := exec.LookPath(path); err == nil {
		path = resolved
	}
	return &Pdftoppm{Path: path, DPI: dpi, MaxPages: maxPages}
}

// Rasterize runs `pdftoppm -r <dpi> -png [-l <max>] <pdf> <outDir>/page`.
// pdftoppm names its output page-<n>.png, zero padding n to the width of
// the page count.
func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	args := []string{"-r", strconv.Itoa(p.DPI), "-png"}
	if p.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.MaxPages))
	}
	args = append(args, pdfPath, filepath.Join(outDir, "page"))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return collectPages(outDir)
}

func (p *Pdftoppm) Available(ctx context.Context) bool {
	return exec.CommandContext(ctx, p.Path, "-v").Run() == nil
}

// collectPages lists page-<n>.png files in outDir ordered by n.
func collectPages(outDir string) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read page dir: %w", err)
	}

	type page struct {
		number int
		path   string
	}
	var pages []page
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "page-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page-"), ".png"))
		if err != nil {
			continue
		}
		pages = append(pages, page{number: n, path: filepath.Join(outDir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].number < pages[j].number })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}
