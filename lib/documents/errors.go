package documents

import "errors"

var (
	ErrInvalidPatientID   = errors.New("invalid patient id")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrEmptyDocument      = errors.New("document is empty")
	ErrUnreadableDocument = errors.New("document could not be read")
	ErrNoText             = errors.New("no text found in document")
	ErrProcessingFailed   = errors.New("document processing failed")
)
