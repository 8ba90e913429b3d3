package writer

import (
	"path"
	"strings"

	"github.com/gear6io/hivewriter/utils"
	"github.com/google/uuid"
)

// DataFileExtension is appended by the generated namers
const DataFileExtension = ".parquet"

// FileNamer picks the path of a new data file inside dir
type FileNamer interface {
	Generate(dir string) string
}

// DefaultFileNamer produces hivewriter_<uuid without dashes>.parquet
type DefaultFileNamer struct{}

func (DefaultFileNamer) Generate(dir string) string {
	return path.Join(dir, "hivewriter_"+strings.ReplaceAll(uuid.NewString(), "-", "")+DataFileExtension)
}

// UUIDFileNamer produces <uuid>.parquet
type UUIDFileNamer struct{}

func (UUIDFileNamer) Generate(dir string) string {
	return path.Join(dir, uuid.NewString()+DataFileExtension)
}

// ULIDFileNamer produces time-sortable names, so name order is write order
type ULIDFileNamer struct{}

func (ULIDFileNamer) Generate(dir string) string {
	return path.Join(dir, utils.ULIDString()+DataFileExtension)
}

// ConstantFileNamer always returns the same name. With Append a later
// write replaces the earlier file.
type ConstantFileNamer struct {
	Name string
}

func (n ConstantFileNamer) Generate(dir string) string {
	return path.Join(dir, n.Name)
}

// NewFileNamer maps a configured namer name to a FileNamer
func NewFileNamer(name, constant string) (FileNamer, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultFileNamer{}, nil
	case "uuid":
		return UUIDFileNamer{}, nil
	case "ulid":
		return ULIDFileNamer{}, nil
	case "constant":
		if constant == "" {
			return nil, newInvalidOption("file_namer", "constant namer needs a file name")
		}
		return ConstantFileNamer{Name: constant}, nil
	}
	return nil, newInvalidOption("file_namer", "unknown file namer "+name)
}
