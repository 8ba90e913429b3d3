package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/gear6io/hivewriter/server/storage"
)

// Type is the storage type identifier for the local filesystem
const Type = "filesystem"

// FileStorage implements storage.FileSystem on the local disk
type FileStorage struct{}

var _ storage.FileSystem = (*FileStorage)(nil)

// NewFileStorage creates a new filesystem storage
func NewFileStorage() *FileStorage {
	return &FileStorage{}
}

// GetStorageType returns the storage type identifier
func (fs *FileStorage) GetStorageType() string {
	return Type
}

// Exists checks if a file or directory exists
func (fs *FileStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, storage.NewFileReadFailed(path, err)
}

// Create writes into a hidden temporary file next to path and renames it
// into place on Close, so readers never observe a partial file.
func (fs *FileStorage) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storage.NewFileWriteFailed(path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, storage.NewFileWriteFailed(path, err)
	}

	return &fileWriter{file: tmp, path: path}, nil
}

// Open opens a file for reading
func (fs *FileStorage) Open(ctx context.Context, path string) (storage.File, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, storage.NewFileNotFound(path, err)
	}
	if err != nil {
		return nil, storage.NewFileReadFailed(path, err)
	}
	return file, nil
}

// Delete removes a file, or a directory tree when recursive
func (fs *FileStorage) Delete(ctx context.Context, path string, recursive bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !os.IsNotExist(err) {
		return storage.NewDeleteFailed(path, err)
	}
	return nil
}

// List returns the regular files directly under dir
func (fs *FileStorage) List(ctx context.Context, dir string) ([]storage.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.NewListFailed(dir, err)
	}

	files := make([]storage.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		files = append(files, storage.FileInfo{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
			Size: info.Size(),
		})
	}
	return files, nil
}

// fileWriter publishes the temporary file on Close
type fileWriter struct {
	file   *os.File
	path   string
	closed bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		return n, storage.NewFileWriteFailed(w.path, err)
	}
	return n, nil
}

func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.file.Close(); err != nil {
		os.Remove(w.file.Name())
		return storage.NewFileWriteFailed(w.path, err)
	}
	if err := os.Rename(w.file.Name(), w.path); err != nil {
		os.Remove(w.file.Name())
		return storage.NewFileWriteFailed(w.path, err)
	}
	return nil
}
