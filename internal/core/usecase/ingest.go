package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/korzhov-lab/microscan/internal/core/domain"
	"github.com/korzhov-lab/microscan/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo           ports.DocumentRepository
	storage        ports.ObjectStorage
	queue          ports.MessageQueue
	maxUploadBytes int64
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxUploadBytes int64,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:           repo,
		storage:        storage,
		queue:          queue,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload validates one file, stores it and queues it for extraction.
// Rejection here is per-file: the HTTP adapter keeps processing the rest
// of the batch.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	size int64,
	body io.Reader,
) (*domain.Document, error) {
	if !isPDF(filename, mimeType) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("unsupported file type: %s", filename))
	}
	if uc.maxUploadBytes > 0 && size > uc.maxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("file exceeds %d bytes: %d", uc.maxUploadBytes, size))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		SizeBytes:   size,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, nil
}

// Retry re-enters a failed document into the pipeline without re-upload.
func (uc *IngestDocumentUseCase) Retry(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.Status != domain.StatusFailed {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retry document",
			fmt.Errorf("status %s is not retriable", doc.Status))
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusUploaded, ""); err != nil {
		return nil, fmt.Errorf("reset document status: %w", err)
	}
	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish retry event: %w", err)
	}

	doc.Status = domain.StatusUploaded
	doc.Error = ""
	return doc, nil
}

func isPDF(filename, mimeType string) bool {
	if strings.EqualFold(mimeType, "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.pdf"
	}
	return base
}
