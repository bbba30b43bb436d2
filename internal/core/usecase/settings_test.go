package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

func TestSettingsUpdatePersistsVerbatim(t *testing.T) {
	kv := newFakeKVStore()
	svc := NewSettingsService(kv, nil, nil)
	ctx := context.Background()

	svc.Update(ctx, domain.StoredSettings{APIKey: "sk-or-abc", PreferredModel: "deepseek/deepseek-chat"})

	raw, found, _ := kv.Get(ctx, SettingsKey)
	if !found {
		t.Fatal("settings not persisted")
	}
	var stored domain.StoredSettings
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal stored settings: %v", err)
	}
	if stored.APIKey != "sk-or-abc" {
		t.Errorf("stored api key = %q, must be written verbatim", stored.APIKey)
	}
	if stored.PreferredModel != "deepseek/deepseek-chat" {
		t.Errorf("stored model = %q", stored.PreferredModel)
	}
}

func TestSettingsLoadThenCurrent(t *testing.T) {
	kv := newFakeKVStore()
	writer := NewSettingsService(kv, nil, nil)
	ctx := context.Background()
	writer.Update(ctx, domain.StoredSettings{PreferredModel: "anthropic/claude"})

	reader := NewSettingsService(kv, nil, nil)
	reader.Load(ctx)
	if got := reader.Current().PreferredModel; got != "anthropic/claude" {
		t.Errorf("preferred model = %q", got)
	}
}

func TestSettingsLoadSurvivesBadData(t *testing.T) {
	kv := newFakeKVStore()
	kv.data[SettingsKey] = []byte(`not json at all`)
	svc := NewSettingsService(kv, nil, nil)

	svc.Load(context.Background())
	if got := svc.Current(); got != (domain.StoredSettings{}) {
		t.Errorf("corrupt settings must fall back to defaults, got %+v", got)
	}
}

func TestSettingsUpdateSurvivesWriteFailure(t *testing.T) {
	kv := newFakeKVStore()
	kv.setErr = errors.New("disk full")
	svc := NewSettingsService(kv, nil, nil)
	ctx := context.Background()

	svc.Update(ctx, domain.StoredSettings{PreferredModel: "deepseek/deepseek-chat"})

	// The session keeps the new value even though the mirror write failed.
	if got := svc.Current().PreferredModel; got != "deepseek/deepseek-chat" {
		t.Errorf("current model = %q", got)
	}
}

func TestSettingsUpdateFailureNotifiesObserver(t *testing.T) {
	kv := newFakeKVStore()
	kv.setErr = errors.New("disk full")
	observer := &fakeObserver{}
	svc := NewSettingsService(kv, nil, observer)
	ctx := context.Background()

	svc.Update(ctx, domain.StoredSettings{PreferredModel: "deepseek/deepseek-chat"})
	if len(observer.persistFailures) != 1 || observer.persistFailures[0] != SettingsKey {
		t.Errorf("observer saw %v, want one failure for %q", observer.persistFailures, SettingsKey)
	}

	kv.setErr = nil
	svc.Update(ctx, domain.StoredSettings{PreferredModel: "deepseek/deepseek-chat"})
	if len(observer.persistFailures) != 1 {
		t.Errorf("successful update must not notify, got %v", observer.persistFailures)
	}
}
