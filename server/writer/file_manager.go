package writer

import (
	"context"

	"github.com/gear6io/hivewriter/server/storage"
)

// FileManager applies the write mode to a directory and returns the path
// of the next data file in it.
type FileManager interface {
	Prepare(ctx context.Context, fs storage.FileSystem, dir string, mode WriteMode) (string, error)
}

// OptimisticFileManager assumes no other writer targets the same
// directory. It neither locks nor probes for existing files.
//
// Append writes wherever the namer points. A deterministic namer with
// Append silently replaces the earlier file; that is left to the caller.
type OptimisticFileManager struct {
	namer FileNamer
}

func NewOptimisticFileManager(namer FileNamer) *OptimisticFileManager {
	if namer == nil {
		namer = DefaultFileNamer{}
	}
	return &OptimisticFileManager{namer: namer}
}

// Prepare clears dir under Overwrite so the new file becomes its only content
func (m *OptimisticFileManager) Prepare(ctx context.Context, fs storage.FileSystem, dir string, mode WriteMode) (string, error) {
	if mode == Overwrite {
		if err := fs.Delete(ctx, dir, true); err != nil {
			return "", err
		}
	}
	return m.namer.Generate(dir), nil
}
