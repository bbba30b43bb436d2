package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

// Storage keeps uploaded PDFs on the local filesystem, one file per
// storage key. Keys are flattened to a single path element so a key
// can never address anything outside the storage root.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) keyPath(key string) (string, error) {
	name := filepath.Base(filepath.Clean(key))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve storage key", fmt.Errorf("unusable key %q", key))
	}
	return filepath.Join(s.basePath, name), nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open stored document", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}
