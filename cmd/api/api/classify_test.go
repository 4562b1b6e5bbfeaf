package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onkernel/docclassify/cmd/api/config"
	"github.com/onkernel/docclassify/lib/classifier"
	"github.com/onkernel/docclassify/lib/documents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyRequest(t *testing.T, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func pdfPart() part {
	return part{field: "file", filename: "scan.pdf", contentType: "application/pdf", data: []byte("%PDF-1.7")}
}

func TestClassify_Success(t *testing.T) {
	svc, mgr := newTestService(t)
	mgr.result = &documents.Result{
		DocumentID:     "doc1",
		PatientID:      "p-1",
		Classification: classifier.Classification{Label: "urine analysis", Confidence: 0.8812},
		StoragePath:    "https://nyc3.digitaloceanspaces.com/records/patients/p-1/urine_analysis/scan.pdf",
		Status:         documents.StatusProcessed,
		PageCount:      1,
	}

	rec, body := do(t, newRouter(svc), classifyRequest(t, map[string]string{"patient_id": "p-1"}, pdfPart()))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "p-1", body["patient_id"])
	assert.Equal(t, "processed", body["status"])
	assert.Equal(t, mgr.result.StoragePath, body["s3_path"])
	assert.Equal(t, map[string]any{"label": "urine analysis", "confidence": 0.8812}, body["classification"])

	require.NotNil(t, mgr.got)
	assert.Equal(t, "p-1", mgr.got.PatientID)
	assert.Equal(t, "scan.pdf", mgr.got.Filename)
	assert.Equal(t, "application/pdf", mgr.got.ContentType)
	assert.Equal(t, []byte("%PDF-1.7"), mgr.got.Data)
}

func TestClassify_MissingFields(t *testing.T) {
	svc, mgr := newTestService(t)
	h := newRouter(svc)

	rec, body := do(t, h, classifyRequest(t, nil, pdfPart()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Field required: patient_id", body["detail"])

	rec, body = do(t, h, classifyRequest(t, map[string]string{"patient_id": "p-1"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Field required: file", body["detail"])

	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBufferString(`{"patient_id":"p-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, _ = do(t, h, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Nil(t, mgr.got)
}

func TestClassify_TooLarge(t *testing.T) {
	svc, mgr := newTestService(t)
	big := part{field: "file", filename: "big.png", contentType: "image/png", data: bytes.Repeat([]byte("x"), 2<<20)}

	rec, body := do(t, newRouter(svc), classifyRequest(t, map[string]string{"patient_id": "p-1"}, big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.NotEmpty(t, body["detail"])
	assert.Nil(t, mgr.got)
}

func TestClassify_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantDetail string
	}{
		{documents.ErrInvalidFileType, http.StatusBadRequest, "Invalid file type. Only PDF/JPEG/PNG allowed"},
		{documents.ErrEmptyDocument, http.StatusBadRequest, "Uploaded file is empty"},
		{documents.ErrUnreadableDocument, http.StatusBadRequest, "Uploaded file could not be read"},
		{documents.ErrInvalidPatientID, http.StatusUnprocessableEntity, "Invalid patient_id"},
		{documents.ErrNoText, http.StatusUnprocessableEntity, "No text could be extracted from the document"},
		{fmt.Errorf("%w: %w", documents.ErrProcessingFailed, context.DeadlineExceeded), http.StatusGatewayTimeout, "Document processing timed out"},
		{fmt.Errorf("%w: classify: status 503", documents.ErrProcessingFailed), http.StatusInternalServerError, "Document processing failed"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc, mgr := newTestService(t)
			mgr.err = tt.err

			rec, body := do(t, newRouter(svc), classifyRequest(t, map[string]string{"patient_id": "p-1"}, pdfPart()))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDetail, body["detail"])
		})
	}
}

func TestClassify_JWTRequiredWhenConfigured(t *testing.T) {
	svc, mgr := newTestService(t, func(c *config.Config) { c.JwtSecret = "s3cret" })
	mgr.result = &documents.Result{Status: documents.StatusProcessed}
	h := newRouter(svc)

	rec, _ := do(t, h, classifyRequest(t, map[string]string{"patient_id": "p-1"}, pdfPart()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, mgr.got)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "clinic-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	req := classifyRequest(t, map[string]string{"patient_id": "p-1"}, pdfPart())
	req.Header.Set("Authorization", "Bearer "+token)
	rec, _ = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public.
	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
