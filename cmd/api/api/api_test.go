package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/go-chi/chi/v5"
	"github.com/onkernel/docclassify/cmd/api/config"
	"github.com/onkernel/docclassify/lib/documents"
	"github.com/stretchr/testify/require"
)

// fakeManager records the upload it receives and returns a canned result.
type fakeManager struct {
	got    *documents.Upload
	result *documents.Result
	err    error
}

func (f *fakeManager) Process(ctx context.Context, upload documents.Upload) (*documents.Result, error) {
	f.got = &upload
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// newTestService creates an ApiService backed by a fake document manager
func newTestService(t *testing.T, mutate ...func(*config.Config)) (*ApiService, *fakeManager) {
	t.Helper()
	cfg := &config.Config{
		MaxUploadSize: 1 * datasize.MB,
	}
	for _, m := range mutate {
		m(cfg)
	}
	mgr := &fakeManager{}
	return New(cfg, mgr), mgr
}

func newRouter(svc *ApiService) http.Handler {
	r := chi.NewRouter()
	svc.Routes(r)
	return r
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="` + f.field + `"; filename="` + f.filename + `"`}
		header["Content-Type"] = []string{f.contentType}
		pw, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = pw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		data, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &body))
	}
	return rec, body
}
