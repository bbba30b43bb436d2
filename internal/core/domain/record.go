package domain

import "time"

// ExportArtifact is a named, downloadable rendition of one record.
type ExportArtifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExtractionRecord is one completed extraction job. It is built once after
// normalization succeeds and never mutated afterwards.
type ExtractionRecord struct {
	ID             string            `json:"id"`
	FileName       string            `json:"file_name"`
	FileSize       int64             `json:"file_size"`
	ProcessedAt    time.Time         `json:"processed_at"`
	DurationMs     int64             `json:"duration_ms"`
	Summary        ExtractionSummary `json:"summary"`
	Entities       []MicrobialEntity `json:"entities"`
	RawTextPreview string            `json:"raw_text_preview"`
}
