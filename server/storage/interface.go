package storage

import (
	"context"
	"io"
	"strings"
)

// File is an open data file. Columnar readers need random access.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// FileInfo describes one listed file
type FileInfo struct {
	Path string
	Name string
	Size int64
}

// FileSystem is the storage a warehouse lives on. Paths are the ones
// produced by paths.PathManager. Directories are implicit on object stores.
type FileSystem interface {
	// Exists reports whether path is a file or a non-empty directory
	Exists(ctx context.Context, path string) (bool, error)
	// Create opens path for writing, truncating any existing file. The file
	// becomes visible when the writer is closed.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	Open(ctx context.Context, path string) (File, error)
	// Delete removes path; recursive removes a directory and its contents.
	// A missing path is not an error.
	Delete(ctx context.Context, path string, recursive bool) error
	// List returns the files directly under dir sorted by name. A missing
	// directory yields no files.
	List(ctx context.Context, dir string) ([]FileInfo, error)
}

// IsHidden reports whether a file name is bookkeeping rather than data
// (_SUCCESS, .crc files and in-flight temporaries).
func IsHidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

// DataFiles filters hidden files out of a listing
func DataFiles(files []FileInfo) []FileInfo {
	out := files[:0:0]
	for _, f := range files {
		if !IsHidden(f.Name) {
			out = append(out, f)
		}
	}
	return out
}
