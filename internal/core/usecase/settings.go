package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/korzhov-lab/microscan/internal/core/domain"
	"github.com/korzhov-lab/microscan/internal/core/ports"
)

// SettingsService holds the session-wide stored settings: loaded once at
// startup, persisted verbatim on every change. Storage errors degrade to
// defaults on read and are logged on write.
type SettingsService struct {
	kv       ports.KeyValueStore
	logger   *slog.Logger
	observer ports.PipelineObserver

	mu       sync.RWMutex
	settings domain.StoredSettings
}

func NewSettingsService(kv ports.KeyValueStore, logger *slog.Logger, observer ports.PipelineObserver) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{kv: kv, logger: logger, observer: observer}
}

func (s *SettingsService) Load(ctx context.Context) {
	raw, found, err := s.kv.Get(ctx, SettingsKey)
	if err != nil {
		s.logger.Warn("settings_read_failed", "error", err)
		return
	}
	if !found {
		return
	}
	var settings domain.StoredSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("settings_corrupted", "error", err)
		return
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *SettingsService) Current() domain.StoredSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *SettingsService) Update(ctx context.Context, settings domain.StoredSettings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	raw, err := json.Marshal(settings)
	if err != nil {
		s.logger.Error("settings_encode_failed", "error", err)
		s.notifyPersistFailed()
		return
	}
	if err := s.kv.Set(ctx, SettingsKey, raw); err != nil {
		s.logger.Error("settings_persist_failed", "error", err)
		s.notifyPersistFailed()
	}
}

func (s *SettingsService) notifyPersistFailed() {
	if s.observer != nil {
		s.observer.PersistenceFailed(SettingsKey)
	}
}
