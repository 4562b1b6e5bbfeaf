package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/onkernel/docclassify/lib/documents"
	"github.com/onkernel/docclassify/lib/logger"
	mw "github.com/onkernel/docclassify/lib/middleware"
	"github.com/onkernel/docclassify/lib/ocr"
)

// multipartMemory is how much of a multipart body is kept in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

const invalidFileTypeDetail = "Invalid file type. Only PDF/JPEG/PNG allowed"

// Classify accepts a multipart upload with "file" and "patient_id" fields
func (s *ApiService) Classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		log.WarnContext(ctx, "invalid multipart form", "error", err)
		writeDetail(w, http.StatusUnprocessableEntity, "Request must be multipart/form-data with file and patient_id fields")
		return
	}
	defer r.MultipartForm.RemoveAll()

	patientID := r.FormValue("patient_id")
	if patientID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Field required: patient_id")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Field required: file")
		return
	}
	defer file.Close()

	if kind, err := ocr.DetectKind(header.Filename); err == nil {
		mw.RecordDocument(ctx, string(kind), "")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.ErrorContext(ctx, "failed to read upload", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Document processing failed")
		return
	}

	result, err := s.DocumentManager.Process(ctx, documents.Upload{
		PatientID:   patientID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		status, detail := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "document processing failed",
				"patient_id", patientID, "filename", header.Filename, "subject", mw.SubjectFromContext(ctx), "error", err)
		}
		writeDetail(w, status, detail)
		return
	}

	mw.RecordDocument(ctx, "", result.Classification.Label)
	writeJSON(w, http.StatusOK, result)
}

// errorStatus maps pipeline errors to a status code and a client-safe detail.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, documents.ErrInvalidFileType):
		return http.StatusBadRequest, invalidFileTypeDetail
	case errors.Is(err, documents.ErrEmptyDocument):
		return http.StatusBadRequest, "Uploaded file is empty"
	case errors.Is(err, documents.ErrUnreadableDocument):
		return http.StatusBadRequest, "Uploaded file could not be read"
	case errors.Is(err, documents.ErrInvalidPatientID):
		return http.StatusUnprocessableEntity, "Invalid patient_id"
	case errors.Is(err, documents.ErrNoText):
		return http.StatusUnprocessableEntity, "No text could be extracted from the document"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Document processing timed out"
	default:
		return http.StatusInternalServerError, "Document processing failed"
	}
}
