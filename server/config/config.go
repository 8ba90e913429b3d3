package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the complete hivewriter configuration
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Writer    WriterConfig    `yaml:"writer"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`      // "json" or "console"
	FilePath   string `yaml:"file_path"`   // Path to log file
	Console    bool   `yaml:"console"`     // Whether to log to stderr
	MaxSize    int    `yaml:"max_size"`    // Max file size in MB
	MaxBackups int    `yaml:"max_backups"` // Max number of backup files
	MaxAge     int    `yaml:"max_age"`     // Max age in days
	Cleanup    bool   `yaml:"cleanup"`     // Whether to cleanup log file on startup
}

// WarehouseConfig locates table data
type WarehouseConfig struct {
	Root    string        `yaml:"root"` // directory, or key prefix for s3
	Storage StorageConfig `yaml:"storage"`
}

// StorageConfig selects the filesystem backend
type StorageConfig struct {
	Type string   `yaml:"type"`
	S3   S3Config `yaml:"s3"`
}

// S3Config configures the MinIO client
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// CatalogConfig represents catalog configuration
type CatalogConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"` // empty: <root>/.hivewriter/catalog.db
}

// WriterConfig holds the defaults applied to every writer session
type WriterConfig struct {
	Mode               string      `yaml:"mode"`
	FileNamer          string      `yaml:"file_namer"`
	ConstantFileName   string      `yaml:"constant_file_name"`
	Compression        string      `yaml:"compression"`
	CompressionLevel   int         `yaml:"compression_level"`
	Parallelism        int         `yaml:"parallelism"`
	PartitionCacheSize int         `yaml:"partition_cache_size"`
	SchemaMismatch     string      `yaml:"schema_mismatch"`
	Await              AwaitConfig `yaml:"await"`
}

// AwaitConfig bounds partition visibility polling
type AwaitConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

// LoadDefaultConfig returns a default configuration
func LoadDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			Console:    true,
			MaxSize:    100, // 100MB
			MaxBackups: 3,
			MaxAge:     7, // 7 days
		},
		Warehouse: WarehouseConfig{
			Root: "./warehouse",
			Storage: StorageConfig{
				Type: StorageFilesystem,
				S3:   S3Config{Region: "us-east-1"},
			},
		},
		Catalog: CatalogConfig{
			Type: CatalogSQLite,
		},
		Writer: WriterConfig{
			Mode:               ModeAppend,
			FileNamer:          NamerDefault,
			Compression:        "snappy",
			Parallelism:        1,
			PartitionCacheSize: 10000,
			SchemaMismatch:     MismatchFail,
			Await: AwaitConfig{
				Timeout:  30 * time.Second,
				Interval: 200 * time.Millisecond,
			},
		},
	}
}

// LoadConfig loads configuration from a file, filling unset values with defaults
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err).AddContext("file", filename)
	}

	config := LoadDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err).AddContext("file", filename)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.New(ErrConfigValidationFailed, "configuration validation failed", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.New(ErrConfigFileMarshalFailed, "failed to marshal config", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to write config file", err).AddContext("file", filename)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Warehouse.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	return c.Writer.Validate()
}

// Validate validates the warehouse configuration
func (w *WarehouseConfig) Validate() error {
	if !oneOf(w.Storage.Type, validStorageTypes) {
		return errors.New(ErrStorageTypeInvalid, "unknown storage type", nil).AddContext("type", w.Storage.Type)
	}
	if w.Storage.Type == StorageS3 {
		if w.Storage.S3.Bucket == "" {
			return errors.New(ErrS3BucketRequired, "s3 storage requires a bucket", nil)
		}
		return nil
	}
	if w.Root == "" {
		return errors.New(ErrWarehouseRootRequired, "warehouse root is required", nil)
	}
	return nil
}

// Validate validates the catalog configuration
func (c *CatalogConfig) Validate() error {
	if c.Type != CatalogSQLite {
		return errors.New(ErrCatalogTypeInvalid, "unknown catalog type", nil).AddContext("type", c.Type)
	}
	return nil
}

// Validate validates writer defaults
func (w *WriterConfig) Validate() error {
	invalid := func(option, value string) error {
		return errors.New(ErrWriterOptionInvalid, "invalid writer option", nil).
			AddContext("option", option).
			AddContext("value", value)
	}

	if !oneOf(w.Mode, validModes) {
		return invalid("mode", w.Mode)
	}
	if !oneOf(w.FileNamer, validNamers) {
		return invalid("file_namer", w.FileNamer)
	}
	if w.FileNamer == NamerConstant && w.ConstantFileName == "" {
		return invalid("constant_file_name", "")
	}
	if !oneOf(w.SchemaMismatch, validMismatch) {
		return invalid("schema_mismatch", w.SchemaMismatch)
	}
	if w.Parallelism < 1 {
		return invalid("parallelism", fmt.Sprintf("%d", w.Parallelism))
	}
	if w.PartitionCacheSize < 0 {
		return invalid("partition_cache_size", fmt.Sprintf("%d", w.PartitionCacheSize))
	}
	if w.Await.Interval <= 0 || w.Await.Timeout < w.Await.Interval {
		return invalid("await", fmt.Sprintf("timeout=%s interval=%s", w.Await.Timeout, w.Await.Interval))
	}
	return nil
}

// CatalogPath returns the configured catalog database path or the default under root
func (c *Config) CatalogPath(defaultPath string) string {
	if c.Catalog.Path != "" {
		return c.Catalog.Path
	}
	return defaultPath
}
