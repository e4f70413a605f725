package embedstore

import (
	"context"
	"sync"
)

var (
	initMu       sync.Mutex
	defaultStore *Store
)

// Init creates the process-wide store. It must be called once at startup;
// any later call returns ErrAlreadyInitialized. A failed Init may be retried.
func Init(ctx context.Context, opts Options) (*Store, error) {
	initMu.Lock()
	defer initMu.Unlock()

	if defaultStore != nil {
		return nil, ErrAlreadyInitialized
	}
	s, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	defaultStore = s
	return s, nil
}

// Default returns the store created by Init, or nil before Init.
func Default() *Store {
	initMu.Lock()
	defer initMu.Unlock()
	return defaultStore
}
