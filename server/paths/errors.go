package paths

import "github.com/gear6io/hivewriter/pkg/errors"

// Path-specific error codes
var (
	ErrDirectoryCreationFailed = errors.MustNewCode("paths.directory_creation_failed")
)
