package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/korzhov-lab/microscan/internal/core/domain"
	"github.com/korzhov-lab/microscan/internal/core/ports"
)

// ProcessDocumentUseCase runs the extraction pipeline for one document:
// decode text, call the model, normalize, build the record, commit it to
// history. Documents are processed strictly one at a time; no document's
// model call begins before the previous pipeline has fully completed.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	llm       ports.EntityExtractor
	history   *HistoryStore
	settings  *SettingsService
	graph     ports.TaxonomyGraph
	observer  ports.PipelineObserver
	logger    *slog.Logger

	mu sync.Mutex
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	llm ports.EntityExtractor,
	history *HistoryStore,
	settings *SettingsService,
	graph ports.TaxonomyGraph,
	observer ports.PipelineObserver,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		llm:       llm,
		history:   history,
		settings:  settings,
		graph:     graph,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	record, err := uc.runPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.LinkRecord(ctx, documentID, record.ID); err != nil {
		return fmt.Errorf("link extraction record: %w", err)
	}
	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, documentID string) (domain.ExtractionRecord, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return domain.ExtractionRecord{}, err
	}

	startedAt := time.Now().UTC()

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return domain.ExtractionRecord{}, err
	}

	raw, err := uc.extractEntities(ctx, text)
	if err != nil {
		return domain.ExtractionRecord{}, err
	}

	entities, err := NormalizeEntities(raw)
	if err != nil {
		return domain.ExtractionRecord{}, err
	}

	finishedAt := time.Now().UTC()
	record := BuildRecord(doc.Filename, doc.SizeBytes, startedAt, finishedAt, entities, text)

	uc.commitRecord(ctx, record)
	uc.projectGraph(ctx, record)

	return record, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) extractEntities(ctx context.Context, text string) ([]byte, error) {
	settings := uc.settings.Current()
	raw, err := uc.llm.ExtractEntities(ctx, text, domain.ExtractionOptions{
		Model:  settings.PreferredModel,
		APIKey: settings.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}
	return raw, nil
}

// commitRecord refreshes from storage, prepends and mirrors back. Storage
// failures are absorbed inside the history store: a failed write never
// rolls back the in-memory record.
func (uc *ProcessDocumentUseCase) commitRecord(ctx context.Context, record domain.ExtractionRecord) {
	uc.history.Load(ctx)
	uc.history.Prepend(record)
	uc.history.Persist(ctx)
}

func (uc *ProcessDocumentUseCase) projectGraph(ctx context.Context, record domain.ExtractionRecord) {
	if uc.graph == nil {
		return
	}
	if err := uc.graph.ProjectRecord(ctx, record); err != nil {
		uc.logger.Warn("taxonomy_graph_projection_failed", "record_id", record.ID, "error", err)
		if uc.observer != nil {
			uc.observer.GraphProjectionFailed()
		}
	}
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
