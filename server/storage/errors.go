package storage

import "github.com/gear6io/hivewriter/pkg/errors"

// Storage error codes shared by every FileSystem implementation
var (
	FileNotFound    = errors.MustNewCode("storage.file_not_found")
	FileWriteFailed = errors.MustNewCode("storage.file_write_failed")
	FileReadFailed  = errors.MustNewCode("storage.file_read_failed")
	DeleteFailed    = errors.MustNewCode("storage.delete_failed")
	ListFailed      = errors.MustNewCode("storage.list_failed")
)

func NewFileNotFound(path string, cause error) *errors.Error {
	return errors.New(FileNotFound, "file not found", cause).AddContext("path", path)
}

// NewFileWriteFailed reports a failed create, write or close of a data file.
func NewFileWriteFailed(path string, cause error) *errors.Error {
	return errors.New(FileWriteFailed, "failed to write file", cause).AddContext("path", path)
}

func NewFileReadFailed(path string, cause error) *errors.Error {
	return errors.New(FileReadFailed, "failed to read file", cause).AddContext("path", path)
}

func NewDeleteFailed(path string, cause error) *errors.Error {
	return errors.New(DeleteFailed, "failed to delete", cause).AddContext("path", path)
}

func NewListFailed(dir string, cause error) *errors.Error {
	return errors.New(ListFailed, "failed to list directory", cause).AddContext("dir", dir)
}
