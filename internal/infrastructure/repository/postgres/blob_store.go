package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BlobStore is the persistent key-value collaborator: independent
// string-keyed slots, each holding one JSON blob, overwritten whole on
// every write.
type BlobStore struct {
	db *sql.DB
}

func NewBlobStore(db *sql.DB) *BlobStore {
	return &BlobStore{db: db}
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM blob_slots WHERE slot = $1`, key)

	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read blob slot %s: %w", key, err)
	}
	return value, true, nil
}

func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO blob_slots (slot, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (slot) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write blob slot %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blob_slots WHERE slot = $1`, key)
	if err != nil {
		return fmt.Errorf("delete blob slot %s: %w", key, err)
	}
	return nil
}
