package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

// fakeKVStore is an in-memory KeyValueStore with switchable failures.
type fakeKVStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	setOps  int
	lastKey string
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: map[string][]byte{}}
}

func (f *fakeKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	raw, ok := f.data[key]
	return raw, ok, nil
}

func (f *fakeKVStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setOps++
	f.lastKey = key
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeKVStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[string]*domain.Document

	createErr error
	updateErr error

	statusLog []domain.DocumentStatus
}

func newFakeDocumentRepo(docs ...*domain.Document) *fakeDocumentRepo {
	repo := &fakeDocumentRepo{docs: map[string]*domain.Document{}}
	for _, doc := range docs {
		repo.docs[doc.ID] = doc
	}
	return repo
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch document", errors.New(id))
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeDocumentRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", errors.New(id))
	}
	doc.Status = status
	doc.Error = errMessage
	f.statusLog = append(f.statusLog, status)
	return nil
}

func (f *fakeDocumentRepo) LinkRecord(_ context.Context, id, recordID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "link record", errors.New(id))
	}
	doc.RecordID = recordID
	return nil
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	saved   map[string][]byte
	saveErr error
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{saved: map[string][]byte{}}
}

func (f *fakeObjectStorage) Save(_ context.Context, key string, data io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *fakeObjectStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentUploaded(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentUploaded(context.Context, func(context.Context, string) error) error {
	return errors.New("not used in tests")
}

// fakeTextExtractor maps document id to extracted text.
type fakeTextExtractor struct {
	texts map[string]string
	err   error
}

func (f *fakeTextExtractor) Extract(_ context.Context, doc *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.texts[doc.ID], nil
}

// fakeEntityExtractor returns one scripted response per call, in order.
type fakeEntityExtractor struct {
	mu        sync.Mutex
	responses [][]byte
	errs      []error
	calls     int
}

func (f *fakeEntityExtractor) ExtractEntities(context.Context, string, domain.ExtractionOptions) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return []byte(`{"entities": []}`), nil
}

// fakeObserver counts the absorbed failures the pipeline reports.
type fakeObserver struct {
	mu              sync.Mutex
	graphFailures   int
	persistFailures []string
}

func (f *fakeObserver) GraphProjectionFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.graphFailures++
}

func (f *fakeObserver) PersistenceFailed(slot string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistFailures = append(f.persistFailures, slot)
}

type fakeTaxonomyGraph struct {
	mu         sync.Mutex
	projected  []string
	projectErr error
}

func (f *fakeTaxonomyGraph) ProjectRecord(_ context.Context, record domain.ExtractionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.projectErr != nil {
		return f.projectErr
	}
	f.projected = append(f.projected, record.ID)
	return nil
}

type fakeSpreadsheetEncoder struct {
	data []byte
	err  error
}

func (f *fakeSpreadsheetEncoder) EncodeRecord(domain.ExtractionRecord) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}
