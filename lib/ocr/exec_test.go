package ocr

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script standing in for a binary.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestTesseractCLI_Recognize(t *testing.T) {
	// Echo the arguments back so the invocation can be asserted.
	bin := writeScript(t, "tesseract", `echo "  args: $*  "`)
	engine := NewTesseractCLI(bin, []string{"eng", "deu"})

	text, err := engine.Recognize(context.Background(), "/tmp/page.png")
	require.NoError(t, err)
	assert.Equal(t, "args: /tmp/page.png stdout -l eng+deu", text)
	assert.True(t, engine.Available(context.Background()))
}

func TestTesseractCLI_Failure(t *testing.T) {
	bin := writeScript(t, "tesseract", "echo 'Error in pixReadStream' >&2\nexit 1\n")
	engine := NewTesseractCLI(bin, nil)

	_, err := engine.Recognize(context.Background(), "/tmp/page.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pixReadStream")
}

func TestTesseractCLI_MissingBinary(t *testing.T) {
	engine := NewTesseractCLI(filepath.Join(t.TempDir(), "nope"), nil)
	assert.False(t, engine.Available(context.Background()))

	_, err := engine.Recognize(context.Background(), "/tmp/page.png")
	require.Error(t, err)
}

func TestPdftoppm_Rasterize(t *testing.T) {
	// The output prefix is the last argument; emit pages out of order and
	// with padding to exercise sorting.
	bin := writeScript(t, "pdftoppm", `for last; do :; done
echo "$*" > "$(dirname "$last")/args"
: > "$last-10.png"
: > "$last-02.png"
: > "$last-01.png"
: > "$last-notes.txt"
`)
	r := NewPdftoppm(bin, 150, 10)
	outDir := t.TempDir()

	pages, err := r.Rasterize(context.Background(), "/tmp/in.pdf", outDir)
	require.NoError(t, err)

	require.Equal(t, []string{
		filepath.Join(outDir, "page-01.png"),
		filepath.Join(outDir, "page-02.png"),
		filepath.Join(outDir, "page-10.png"),
	}, pages)

	args, err := os.ReadFile(filepath.Join(outDir, "args"))
	require.NoError(t, err)
	assert.Equal(t, "-r 150 -png -l 10 /tmp/in.pdf "+filepath.Join(outDir, "page")+"\n", string(args))
}

func TestPdftoppm_Failure(t *testing.T) {
	bin := writeScript(t, "pdftoppm", "echo 'Syntax Error: Couldn'\"'\"'t find trailer dictionary' >&2\nexit 1\n")
	r := NewPdftoppm(bin, 200, 0)

	_, err := r.Rasterize(context.Background(), "/tmp/in.pdf", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailer dictionary")
}

func TestNewGosseractEngine_WithoutTag(t *testing.T) {
	if _, err := NewGosseractEngine([]string{"eng"}); err != nil {
		require.ErrorIs(t, err, ErrEngineUnavailable)
	}
}
