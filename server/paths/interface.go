package paths

// PathManager resolves every location in the warehouse. Paths are slash
// separated so the same layout serves local disks and object stores.
type PathManager interface {
	// Base paths
	GetBasePath() string
	GetInternalMetadataPath() string
	GetCatalogDBPath() string

	// Warehouse layout: <base>/<database>/<table>/[<k>=<v>/...]
	GetDatabasePath(database string) string
	GetTablePath(database, tableName string) string
	Resolve(database, tableName string, partitionPath ...string) string

	// RelativeToTable returns the part of fullPath below the table directory.
	RelativeToTable(database, tableName, fullPath string) (string, bool)
}
