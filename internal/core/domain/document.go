package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document tracks one uploaded PDF through the extraction pipeline.
// RecordID links to the ExtractionRecord once the pipeline completes.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	SizeBytes   int64          `json:"size_bytes"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	RecordID    string         `json:"record_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
