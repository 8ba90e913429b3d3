package paths

import (
	"os"
	"path"
	"strings"

	"github.com/gear6io/hivewriter/pkg/errors"
)

// ComponentType defines the path manager component type identifier
const ComponentType = "paths"

// InternalDirName holds catalog state next to the data it describes.
const InternalDirName = ".hivewriter"

// Manager implements the PathManager interface
type Manager struct {
	basePath string
}

// NewManager creates a new path manager. basePath may be empty for object
// stores where keys start at the bucket root.
func NewManager(basePath string) *Manager {
	if basePath != "" {
		basePath = path.Clean(basePath)
		if basePath == "." {
			basePath = ""
		}
	}
	return &Manager{basePath: basePath}
}

// GetBasePath returns the warehouse root
func (pm *Manager) GetBasePath() string {
	return pm.basePath
}

// GetInternalMetadataPath returns the internal metadata directory path
func (pm *Manager) GetInternalMetadataPath() string {
	return pm.join(InternalDirName)
}

// GetCatalogDBPath returns the default SQLite catalog location
func (pm *Manager) GetCatalogDBPath() string {
	return path.Join(pm.GetInternalMetadataPath(), "catalog.db")
}

// GetDatabasePath returns the default location of a database
func (pm *Manager) GetDatabasePath(database string) string {
	return pm.join(database)
}

// GetTablePath returns the default location of a table
func (pm *Manager) GetTablePath(database, tableName string) string {
	return pm.join(database, tableName)
}

// Resolve joins the table directory with partition directory fragments
func (pm *Manager) Resolve(database, tableName string, partitionPath ...string) string {
	parts := append([]string{database, tableName}, partitionPath...)
	return pm.join(parts...)
}

// RelativeToTable strips the table prefix from fullPath
func (pm *Manager) RelativeToTable(database, tableName, fullPath string) (string, bool) {
	prefix := pm.GetTablePath(database, tableName) + "/"
	if !strings.HasPrefix(fullPath, prefix) {
		return "", false
	}
	return strings.TrimPrefix(fullPath, prefix), true
}

// EnsureDirectoryStructure creates the local directories the warehouse needs.
// Only meaningful for filesystem-backed warehouses.
func (pm *Manager) EnsureDirectoryStructure() error {
	dirs := []string{
		pm.basePath,
		pm.GetInternalMetadataPath(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(ErrDirectoryCreationFailed, "failed to create directory", err).AddContext("directory", dir)
		}
	}

	return nil
}

// GetType returns the component type identifier
func (pm *Manager) GetType() string {
	return ComponentType
}

func (pm *Manager) join(elem ...string) string {
	if pm.basePath == "" {
		return path.Join(elem...)
	}
	return path.Join(append([]string{pm.basePath}, elem...)...)
}
