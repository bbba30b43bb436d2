package ports

import (
	"context"
	"io"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

// DocumentRepository persists and reads per-document pipeline state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	LinkRecord(ctx context.Context, id, recordID string) error
}

// ObjectStorage stores the raw uploaded PDFs.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue hands uploaded documents to the extraction worker.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a stored binary document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// EntityExtractor asks the hosted model for the raw entity JSON document.
// The returned bytes are the inner message content, still untrusted.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string, opts domain.ExtractionOptions) ([]byte, error)
}

// KeyValueStore is the persistent blob collaborator: independent
// string-keyed slots, one per stored document kind.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// TaxonomyGraph projects completed records into a graph store.
// Projection is best-effort: callers log failures and move on.
type TaxonomyGraph interface {
	ProjectRecord(ctx context.Context, record domain.ExtractionRecord) error
}

// PipelineObserver receives the pipeline's absorbed failures: the ones
// that are logged instead of returned. A nil observer is valid and
// means nobody is counting.
type PipelineObserver interface {
	GraphProjectionFailed()
	PersistenceFailed(slot string)
}

// SpreadsheetEncoder renders a record as a spreadsheet workbook.
type SpreadsheetEncoder interface {
	EncodeRecord(record domain.ExtractionRecord) ([]byte, error)
}
