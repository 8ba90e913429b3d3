package memory

import "github.com/gear6io/hivewriter/pkg/errors"

// Error codes for memory storage package
var (
	ErrWriterClosed = errors.MustNewCode("memory.writer_closed")
)
