// Package snapshot provides durable backends that hold the embedding log as
// a single value under a fixed key.
package snapshot

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when no snapshot exists under the key.
var ErrNotFound = errors.New("snapshot: not found")

// Backend stores opaque snapshot payloads by key. Put replaces the previous
// payload atomically from the reader's point of view.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Memory is an in-process Backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// PutErr, when set, is returned by every Put.
	PutErr error
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}
