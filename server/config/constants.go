package config

// Storage backends
const (
	StorageFilesystem = "filesystem"
	StorageMemory     = "memory"
	StorageS3         = "s3"
)

// Catalog implementations
const (
	CatalogSQLite = "sqlite"
)

// Write modes
const (
	ModeAppend    = "append"
	ModeOverwrite = "overwrite"
)

// File namers
const (
	NamerDefault  = "default"
	NamerUUID     = "uuid"
	NamerULID     = "ulid"
	NamerConstant = "constant"
)

// Schema mismatch policies for existing tables
const (
	MismatchFail  = "fail"
	MismatchTrust = "trust"
)

var (
	validStorageTypes = []string{StorageFilesystem, StorageMemory, StorageS3}
	validModes        = []string{ModeAppend, ModeOverwrite}
	validNamers       = []string{NamerDefault, NamerUUID, NamerULID, NamerConstant}
	validMismatch     = []string{MismatchFail, MismatchTrust}
)

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
