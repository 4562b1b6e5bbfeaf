package documents

import "github.com/onkernel/docclassify/lib/classifier"

// StatusProcessed is the status of a document that was extracted,
// classified and stored.
const StatusProcessed = "processed"

// Upload is a document received from a client.
type Upload struct {
	PatientID   string
	Filename    string
	ContentType string
	Data        []byte
}

// Result describes a processed document.
type Result struct {
	DocumentID     string                    `json:"document_id"`
	PatientID      string                    `json:"patient_id"`
	Classification classifier.Classification `json:"classification"`
	StoragePath    string                    `json:"s3_path"`
	Status         string                    `json:"status"`
	PageCount      int                       `json:"page_count"`
}
