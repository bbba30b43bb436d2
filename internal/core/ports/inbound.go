package ports

import (
	"context"
	"io"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error)
	Retry(ctx context.Context, documentID string) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document pipeline state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for the extraction pipeline.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// HistoryReader exposes the stored extraction history.
type HistoryReader interface {
	Records(ctx context.Context) []domain.ExtractionRecord
	RecordByID(ctx context.Context, id string) (domain.ExtractionRecord, error)
	Clear(ctx context.Context)
}

// RecordExporter serializes a stored record into a downloadable artifact.
type RecordExporter interface {
	Export(ctx context.Context, recordID, format string) (domain.ExportArtifact, error)
}

// SettingsManager reads and updates the session settings.
type SettingsManager interface {
	Current() domain.StoredSettings
	Update(ctx context.Context, settings domain.StoredSettings)
}
