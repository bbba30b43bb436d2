package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/korzhov-lab/microscan/internal/config"
	"github.com/korzhov-lab/microscan/internal/core/ports"
	"github.com/korzhov-lab/microscan/internal/core/usecase"
	"github.com/korzhov-lab/microscan/internal/infrastructure/export/excel"
	"github.com/korzhov-lab/microscan/internal/infrastructure/extractor/pdf"
	neo4jgraph "github.com/korzhov-lab/microscan/internal/infrastructure/graph/neo4j"
	"github.com/korzhov-lab/microscan/internal/infrastructure/llm/openrouter"
	"github.com/korzhov-lab/microscan/internal/infrastructure/queue/nats"
	"github.com/korzhov-lab/microscan/internal/infrastructure/repository/postgres"
	"github.com/korzhov-lab/microscan/internal/infrastructure/resilience"
	"github.com/korzhov-lab/microscan/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Repo     ports.DocumentRepository
	History  *usecase.HistoryStore
	Settings *usecase.SettingsService

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	ExportUC  *usecase.ExportService

	closeFn func()
}

// New wires the application graph. The observer receives absorbed
// pipeline failures; the api process passes nil.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer ports.PipelineObserver) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	blobs := postgres.NewBlobStore(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := openrouter.New(
		cfg.OpenRouterURL,
		cfg.OpenRouterAPIKey,
		cfg.OpenRouterModel,
		cfg.OpenRouterRPS,
		cfg.OpenRouterBurst,
	)

	history := usecase.NewHistoryStore(blobs, logger, observer)
	history.Load(ctx)
	settings := usecase.NewSettingsService(blobs, logger, observer)
	settings.Load(ctx)

	// Graph projection is optional enrichment: a missing or unreachable
	// neo4j never blocks startup.
	var graph ports.TaxonomyGraph
	var projector *neo4jgraph.Projector
	if cfg.Neo4jURI != "" {
		projector, err = neo4jgraph.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			logger.Warn("taxonomy_graph_disabled", "error", err)
		} else {
			graph = projector
		}
	}

	extractor := pdf.NewExtractor(storage)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, cfg.MaxUploadBytes)
	processUC := usecase.NewProcessDocumentUseCase(repo, extractor, llm, history, settings, graph, observer, logger)
	exportUC := usecase.NewExportService(history, excel.NewEncoder())

	return &App{
		Config: cfg,

		Queue:    queue,
		Repo:     repo,
		History:  history,
		Settings: settings,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		ExportUC:  exportUC,

		closeFn: func() {
			queue.Close()
			if projector != nil {
				_ = projector.Close(context.Background())
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
