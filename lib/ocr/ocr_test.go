package ocr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		filename string
		expected Kind
		wantErr  bool
	}{
		{"report.pdf", KindPDF, false},
		{"REPORT.PDF", KindPDF, false},
		{"scan.png", KindImage, false},
		{"scan.jpg", KindImage, false},
		{"scan.JPEG", KindImage, false},
		{"fax.tiff", KindImage, false},
		{"fax.tif", KindImage, false},
		{"scan.bmp", KindImage, false},

		// Rejected
		{"notes.txt", "", true},
		{"archive.pdf.zip", "", true},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			kind, err := DetectKind(tt.filename)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, kind)
		})
	}
}
