package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DreamCats/docrag/internal/snapshot"
)

// SnapshotStore keeps embedding log snapshots in the snapshots table.
// It implements snapshot.Backend.
type SnapshotStore struct {
	db *DB
}

var _ snapshot.Backend = (*SnapshotStore)(nil)

// NewSnapshotStore creates a new snapshot store.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Get returns the payload stored under key, or snapshot.ErrNotFound.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.sqlDB.QueryRowContext(ctx,
		"SELECT payload FROM snapshots WHERE key = ?", key,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return payload, nil
}

// Put replaces the payload stored under key.
func (s *SnapshotStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.sqlDB.ExecContext(ctx, `
		INSERT INTO snapshots (key, payload, size_bytes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			size_bytes = excluded.size_bytes,
			updated_at = excluded.updated_at
	`, key, data, len(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Info returns metadata for the snapshot under key, or nil if absent.
func (s *SnapshotStore) Info(ctx context.Context, key string) (*SnapshotInfo, error) {
	row := s.db.sqlDB.QueryRowContext(ctx,
		"SELECT key, size_bytes, updated_at FROM snapshots WHERE key = ?", key)

	var info SnapshotInfo
	var updatedAtValue any
	if err := row.Scan(&info.Key, &info.SizeBytes, &updatedAtValue); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot info: %w", err)
	}

	updatedAt, err := parseTimeValue(updatedAtValue)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	info.UpdatedAt = updatedAt
	return &info, nil
}
