package memory

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/storage"
)

// Type is the storage type identifier for in-memory storage
const Type = "memory"

// MemoryStorage implements storage.FileSystem over a map. Directories are
// implied by key prefixes, as on an object store.
type MemoryStorage struct {
	data map[string][]byte
	mu   sync.RWMutex
}

var _ storage.FileSystem = (*MemoryStorage)(nil)

// NewMemoryStorage creates a new in-memory data store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string][]byte),
	}
}

// GetStorageType returns the storage type identifier
func (m *MemoryStorage) GetStorageType() string {
	return Type
}

func clean(p string) string {
	return path.Clean("/" + p)
}

// Exists checks if a file or an implied directory exists
func (m *MemoryStorage) Exists(ctx context.Context, p string) (bool, error) {
	key := clean(p)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.data[key]; ok {
		return true, nil
	}
	prefix := strings.TrimSuffix(key, "/") + "/"
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Create creates a new file for writing; content is published on Close
func (m *MemoryStorage) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	return &memoryWriteCloser{
		storage: m,
		key:     clean(p),
	}, nil
}

// Open opens a snapshot of a file for reading
func (m *MemoryStorage) Open(ctx context.Context, p string) (storage.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.data[clean(p)]
	if !exists {
		return nil, storage.NewFileNotFound(p, nil)
	}
	return nopFile{bytes.NewReader(data)}, nil
}

// Delete removes a file, or everything under a directory when recursive
func (m *MemoryStorage) Delete(ctx context.Context, p string, recursive bool) error {
	key := clean(p)
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	if recursive {
		prefix := strings.TrimSuffix(key, "/") + "/"
		for k := range m.data {
			if strings.HasPrefix(k, prefix) {
				delete(m.data, k)
			}
		}
	}
	return nil
}

// List returns files directly under dir
func (m *MemoryStorage) List(ctx context.Context, dir string) ([]storage.FileInfo, error) {
	prefix := strings.TrimSuffix(clean(dir), "/") + "/"
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []storage.FileInfo
	for k, v := range m.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		name := strings.TrimPrefix(k, prefix)
		if strings.Contains(name, "/") {
			continue
		}
		files = append(files, storage.FileInfo{Path: k, Name: name, Size: int64(len(v))})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// WriteFile stores data at path in one step
func (m *MemoryStorage) WriteFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[clean(p)] = append([]byte(nil), data...)
}

// ReadFile returns a copy of the data at path
func (m *MemoryStorage) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.data[clean(p)]
	if !exists {
		return nil, storage.NewFileNotFound(p, nil)
	}
	return append([]byte(nil), data...), nil
}

// Paths returns every stored file path in order
func (m *MemoryStorage) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type nopFile struct {
	*bytes.Reader
}

func (nopFile) Close() error { return nil }

// memoryWriteCloser implements io.WriteCloser for memory storage
type memoryWriteCloser struct {
	storage *MemoryStorage
	key     string
	buf     bytes.Buffer
	closed  bool
}

func (w *memoryWriteCloser) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New(ErrWriterClosed, "write after close", nil).AddContext("path", w.key)
	}
	return w.buf.Write(p)
}

func (w *memoryWriteCloser) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.storage.mu.Lock()
	defer w.storage.mu.Unlock()
	w.storage.data[w.key] = w.buf.Bytes()
	return nil
}
