package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore is a minimal blob store addressed by slash-separated paths.
type FileStore interface {
	Read(ctx context.Context, path string) (io.ReadCloser, error)
	Write(ctx context.Context, path string, data []byte) error
}

// Files is a Backend that keeps each snapshot as one file named
// "<key>.msgpack" inside a FileStore.
type Files struct {
	store FileStore
}

var _ Backend = (*Files)(nil)

// NewFiles wraps a FileStore as a Backend.
func NewFiles(store FileStore) *Files {
	return &Files{store: store}
}

func (f *Files) name(key string) string {
	return key + ".msgpack"
}

func (f *Files) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := f.store.Read(ctx, f.name(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (f *Files) Put(ctx context.Context, key string, data []byte) error {
	return f.store.Write(ctx, f.name(key), data)
}

// Local implements FileStore on the local filesystem under a root directory.
type Local struct {
	root string
}

var _ FileStore = (*Local)(nil)

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (l *Local) resolve(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *Local) Read(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(l.resolve(path))
}

// Write replaces the file atomically through a temporary sibling and rename.
func (l *Local) Write(_ context.Context, path string, data []byte) error {
	full := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), full)
}
