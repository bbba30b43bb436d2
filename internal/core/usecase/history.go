package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/korzhov-lab/microscan/internal/core/domain"
	"github.com/korzhov-lab/microscan/internal/core/ports"
)

// Blob slots in the persistent key-value collaborator. History and
// settings are independent; neither carries a schema-version tag, stored
// data is read back with the same shape it was written in.
const (
	HistoryKey  = "microscan.history"
	SettingsKey = "microscan.settings"
)

// HistoryStore keeps the ordered, most-recent-first extraction history in
// memory and mirrors it to persistent storage. Storage failures degrade to
// "no history": reads treat corrupt or absent data as an empty list, writes
// are logged and never interrupt the caller.
type HistoryStore struct {
	kv       ports.KeyValueStore
	logger   *slog.Logger
	observer ports.PipelineObserver

	mu      sync.Mutex
	records []domain.ExtractionRecord
}

func NewHistoryStore(kv ports.KeyValueStore, logger *slog.Logger, observer ports.PipelineObserver) *HistoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStore{kv: kv, logger: logger, observer: observer}
}

// Load replaces the in-memory list with whatever the store holds.
// Deserialization failure or absent data yields an empty list, never an error.
func (h *HistoryStore) Load(ctx context.Context) []domain.ExtractionRecord {
	records := h.read(ctx)

	h.mu.Lock()
	h.records = records
	snapshot := append([]domain.ExtractionRecord(nil), h.records...)
	h.mu.Unlock()
	return snapshot
}

func (h *HistoryStore) read(ctx context.Context) []domain.ExtractionRecord {
	raw, found, err := h.kv.Get(ctx, HistoryKey)
	if err != nil {
		h.logger.Warn("history_read_failed", "error", err)
		return []domain.ExtractionRecord{}
	}
	if !found {
		return []domain.ExtractionRecord{}
	}
	var records []domain.ExtractionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		h.logger.Warn("history_corrupted", "error", err)
		return []domain.ExtractionRecord{}
	}
	if records == nil {
		records = []domain.ExtractionRecord{}
	}
	return records
}

// Prepend inserts a record at the front of the in-memory list. The caller
// commits the mutation with Persist.
func (h *HistoryStore) Prepend(record domain.ExtractionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append([]domain.ExtractionRecord{record}, h.records...)
}

// Persist mirrors the full in-memory list to storage, overwriting prior
// content. Write failures are reported to the log, not to the caller.
func (h *HistoryStore) Persist(ctx context.Context) {
	h.mu.Lock()
	records := append([]domain.ExtractionRecord(nil), h.records...)
	h.mu.Unlock()

	raw, err := json.Marshal(records)
	if err != nil {
		h.logger.Error("history_encode_failed", "error", err)
		h.notifyPersistFailed()
		return
	}
	if err := h.kv.Set(ctx, HistoryKey, raw); err != nil {
		h.logger.Error("history_persist_failed", "error", err, "records", len(records))
		h.notifyPersistFailed()
	}
}

func (h *HistoryStore) notifyPersistFailed() {
	if h.observer != nil {
		h.observer.PersistenceFailed(HistoryKey)
	}
}

// Clear empties the list and persists immediately: it backs an explicit
// destructive user action, so the write is not deferred.
func (h *HistoryStore) Clear(ctx context.Context) {
	h.mu.Lock()
	h.records = []domain.ExtractionRecord{}
	h.mu.Unlock()
	h.Persist(ctx)
}

// Records reloads from storage so readers in other processes observe the
// worker's latest committed mutations.
func (h *HistoryStore) Records(ctx context.Context) []domain.ExtractionRecord {
	return h.Load(ctx)
}

func (h *HistoryStore) RecordByID(ctx context.Context, id string) (domain.ExtractionRecord, error) {
	for _, record := range h.Load(ctx) {
		if record.ID == id {
			return record, nil
		}
	}
	return domain.ExtractionRecord{}, domain.WrapError(domain.ErrRecordNotFound, "find record",
		fmt.Errorf("id %s", id))
}
