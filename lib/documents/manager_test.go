package documents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/onkernel/docclassify/lib/classifier"
	"github.com/onkernel/docclassify/lib/ocr"
	"github.com/onkernel/docclassify/lib/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	result *ocr.Result
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, filename string, data []byte) (*ocr.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeClassifier struct {
	result *classifier.Classification
	err    error
	text   string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*classifier.Classification, error) {
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	mu          sync.Mutex
	err         error
	key         string
	data        []byte
	contentType string
}

func (f *fakeStore) Backend() string { return "fake" }

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.key, f.data, f.contentType = key, data, contentType
	return "https://nyc3.digitaloceanspaces.com/records/" + key, nil
}

type fixture struct {
	extractor  *fakeExtractor
	classifier *fakeClassifier
	store      *fakeStore
	manager    Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		extractor: &fakeExtractor{result: &ocr.Result{
			Kind:  ocr.KindPDF,
			Text:  "Fetal biometry\nBPD 45mm",
			Pages: []ocr.Page{{Number: 1, Text: "Fetal biometry"}, {Number: 2, Text: "BPD 45mm"}},
		}},
		classifier: &fakeClassifier{result: &classifier.Classification{Label: "ultrasound report", Confidence: 0.9731}},
		store:      &fakeStore{},
	}
	m, err := NewManager(f.extractor, f.classifier, f.store, nil, nil)
	require.NoError(t, err)
	f.manager = m
	return f
}

func upload() Upload {
	return Upload{
		PatientID:   "patient-42",
		Filename:    "Anatomy Scan.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.7"),
	}
}

func TestProcess_Success(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Process(context.Background(), upload())
	require.NoError(t, err)

	assert.NotEmpty(t, result.DocumentID)
	assert.Equal(t, "patient-42", result.PatientID)
	assert.Equal(t, classifier.Classification{Label: "ultrasound report", Confidence: 0.9731}, result.Classification)
	assert.Equal(t, "https://nyc3.digitaloceanspaces.com/records/patients/patient-42/ultrasound_report/Anatomy Scan.pdf", result.StoragePath)
	assert.Equal(t, StatusProcessed, result.Status)
	assert.Equal(t, 2, result.PageCount)

	assert.Equal(t, "Fetal biometry\nBPD 45mm", f.classifier.text)
	assert.Equal(t, "patients/patient-42/ultrasound_report/Anatomy Scan.pdf", f.store.key)
	assert.Equal(t, []byte("%PDF-1.7"), f.store.data)
	assert.Equal(t, "application/pdf", f.store.contentType)
}

func TestProcess_StripsClientDirectories(t *testing.T) {
	f := newFixture(t)
	u := upload()
	u.Filename = `C:\Users\me\Desktop\..\labs.pdf`

	_, err := f.manager.Process(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "patients/patient-42/ultrasound_report/labs.pdf", f.store.key)
}

func TestProcess_UniqueDocumentIDs(t *testing.T) {
	f := newFixture(t)
	a, err := f.manager.Process(context.Background(), upload())
	require.NoError(t, err)
	b, err := f.manager.Process(context.Background(), upload())
	require.NoError(t, err)
	assert.NotEqual(t, a.DocumentID, b.DocumentID)
}

func TestProcess_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Upload)
		wantErr error
	}{
		{"empty patient id", func(u *Upload) { u.PatientID = "" }, ErrInvalidPatientID},
		{"patient id with slash", func(u *Upload) { u.PatientID = "a/b" }, ErrInvalidPatientID},
		{"patient id dotdot", func(u *Upload) { u.PatientID = ".." }, ErrInvalidPatientID},
		{"text file", func(u *Upload) { u.Filename = "notes.txt" }, ErrInvalidFileType},
		{"no extension", func(u *Upload) { u.Filename = "scan" }, ErrInvalidFileType},
		{"empty filename", func(u *Upload) { u.Filename = "" }, ErrInvalidFileType},
		{"empty data", func(u *Upload) { u.Data = nil }, ErrEmptyDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := upload()
			tt.mutate(&u)

			_, err := f.manager.Process(context.Background(), u)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.extractor.calls, "validation must happen before OCR")
			assert.Empty(t, f.store.key)
		})
	}
}

func TestProcess_StageFailures(t *testing.T) {
	t.Run("unreadable image", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.err = errors.Join(ocr.ErrInvalidImage, errors.New("png: invalid format"))
		_, err := f.manager.Process(context.Background(), upload())
		require.ErrorIs(t, err, ErrUnreadableDocument)
	})

	t.Run("pdf without pages", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.err = ocr.ErrNoPages
		_, err := f.manager.Process(context.Background(), upload())
		require.ErrorIs(t, err, ErrUnreadableDocument)
	})

	t.Run("engine failure", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.err = ocr.ErrExtractionFailed
		_, err := f.manager.Process(context.Background(), upload())
		require.ErrorIs(t, err, ErrProcessingFailed)
		require.ErrorIs(t, err, ocr.ErrExtractionFailed)
	})

	t.Run("blank text", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.result = &ocr.Result{Kind: ocr.KindImage, Text: " \n ", Pages: []ocr.Page{{Number: 1}}}
		_, err := f.manager.Process(context.Background(), upload())
		require.ErrorIs(t, err, ErrNoText)
		assert.Empty(t, f.classifier.text, "classifier must not be called")
	})

	t.Run("classifier failure", func(t *testing.T) {
		f := newFixture(t)
		f.classifier.err = classifier.ErrRequestFailed
		_, err := f.manager.Process(context.Background(), upload())
		require.ErrorIs(t, err, ErrProcessingFailed)
		assert.Empty(t, f.store.key, "nothing is stored without a classification")
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.err = storage.ErrUploadFailed
		_, err := f.manager.Process(context.Background(), upload())
		require.ErrorIs(t, err, ErrProcessingFailed)
		require.ErrorIs(t, err, storage.ErrUploadFailed)
	})

	t.Run("label escaping the patient prefix", func(t *testing.T) {
		f := newFixture(t)
		f.classifier.result = &classifier.Classification{Label: "../../victim/ultrasound report", Confidence: 0.99}
		_, err := f.manager.Process(context.Background(), upload())
		require.ErrorIs(t, err, ErrProcessingFailed)
		require.ErrorIs(t, err, storage.ErrInvalidKey)
		assert.Empty(t, f.store.key, "nothing is stored under an unsafe key")
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, "rejected", statusFor(ErrInvalidFileType))
	assert.Equal(t, "no_text", statusFor(ErrNoText))
	assert.Equal(t, "cancelled", statusFor(errors.Join(ErrProcessingFailed, context.Canceled)))
	assert.Equal(t, "failed", statusFor(ErrProcessingFailed))
}
