package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := LoadDefaultConfig()

	assert.Equal(t, "./warehouse", cfg.Warehouse.Root)
	assert.Equal(t, StorageFilesystem, cfg.Warehouse.Storage.Type)
	assert.Equal(t, CatalogSQLite, cfg.Catalog.Type)
	assert.Equal(t, ModeAppend, cfg.Writer.Mode)
	assert.Equal(t, MismatchFail, cfg.Writer.SchemaMismatch)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		code   errors.Code
	}{
		{"EmptyRoot", func(c *Config) { c.Warehouse.Root = "" }, ErrWarehouseRootRequired},
		{"UnknownStorage", func(c *Config) { c.Warehouse.Storage.Type = "hdfs" }, ErrStorageTypeInvalid},
		{"S3WithoutBucket", func(c *Config) { c.Warehouse.Storage.Type = StorageS3 }, ErrS3BucketRequired},
		{"UnknownCatalog", func(c *Config) { c.Catalog.Type = "json" }, ErrCatalogTypeInvalid},
		{"UnknownMode", func(c *Config) { c.Writer.Mode = "upsert" }, ErrWriterOptionInvalid},
		{"ConstantWithoutName", func(c *Config) { c.Writer.FileNamer = NamerConstant }, ErrWriterOptionInvalid},
		{"UnknownMismatch", func(c *Config) { c.Writer.SchemaMismatch = "merge" }, ErrWriterOptionInvalid},
		{"ZeroParallelism", func(c *Config) { c.Writer.Parallelism = 0 }, ErrWriterOptionInvalid},
		{"AwaitTimeoutTooShort", func(c *Config) { c.Writer.Await.Timeout = time.Millisecond }, ErrWriterOptionInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}

	t.Run("S3WithoutRoot", func(t *testing.T) {
		cfg := LoadDefaultConfig()
		cfg.Warehouse.Root = ""
		cfg.Warehouse.Storage.Type = StorageS3
		cfg.Warehouse.Storage.S3.Bucket = "lake"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadAndSaveConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hivewriter.yaml")

	yamlDoc := `
warehouse:
  root: /data/lake
catalog:
  path: /data/catalog.db
writer:
  mode: overwrite
  file_namer: ulid
  await:
    timeout: 5s
    interval: 100ms
`
	require.NoError(t, os.WriteFile(file, []byte(yamlDoc), 0644))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "/data/lake", cfg.Warehouse.Root)
	assert.Equal(t, StorageFilesystem, cfg.Warehouse.Storage.Type, "unset values keep defaults")
	assert.Equal(t, ModeOverwrite, cfg.Writer.Mode)
	assert.Equal(t, NamerULID, cfg.Writer.FileNamer)
	assert.Equal(t, 5*time.Second, cfg.Writer.Await.Timeout)
	assert.Equal(t, "/data/catalog.db", cfg.CatalogPath("/default.db"))

	out := filepath.Join(dir, "saved.yaml")
	require.NoError(t, SaveConfig(cfg, out))
	reloaded, err := LoadConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, ErrConfigFileReadFailed))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("writer: [unclosed"), 0644))
	_, err = LoadConfig(bad)
	assert.True(t, errors.Is(err, ErrConfigFileParseFailed))

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("writer:\n  mode: upsert\n"), 0644))
	_, err = LoadConfig(invalid)
	assert.True(t, errors.Is(err, ErrConfigValidationFailed))
	assert.True(t, errors.Is(err, ErrWriterOptionInvalid))
}

func TestSetupLogger(t *testing.T) {
	cfg := LoadDefaultConfig()
	cfg.Log.Console = false
	cfg.Log.FilePath = filepath.Join(t.TempDir(), "logs", "hivewriter.log")

	logger, file, err := SetupLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, file)
	logger.Info().Msg("hello")
	require.NoError(t, file.Close())
	require.NoError(t, file.Close())

	data, err := os.ReadFile(cfg.Log.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), `"service":"hivewriter"`)

	cfg.Log.FilePath = ""
	_, file, err = SetupLogger(cfg)
	require.NoError(t, err)
	assert.Nil(t, file)
	assert.NoError(t, file.Close())
}

func TestOpenLogFile_Cleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hivewriter.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	lf, err := OpenLogFile(LogConfig{FilePath: path, Cleanup: true})
	require.NoError(t, err)
	_, err = lf.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, lf.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))

	_, err = OpenLogFile(LogConfig{})
	assert.True(t, errors.Is(err, ErrLogFilePathRequired))
}

func TestOpenLogFile_Rotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hivewriter.log")
	require.NoError(t, os.WriteFile(path, make([]byte, 1<<20), 0o644))

	lf, err := OpenLogFile(LogConfig{FilePath: path, MaxSize: 1})
	require.NoError(t, err)
	_, err = lf.Write([]byte("fresh\n"))
	require.NoError(t, err)
	require.NoError(t, lf.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(data))

	backups, err := lf.backups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	info, err := os.Stat(backups[0].path)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), info.Size())

	// below the limit the file is reused
	lf, err = OpenLogFile(LogConfig{FilePath: path, MaxSize: 1})
	require.NoError(t, err)
	require.NoError(t, lf.Close())
	backups, err = lf.backups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestLogFile_Prune(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hivewriter.log")
	now := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)

	write := func(age time.Duration) string {
		p := path + "." + now.Add(-age).Format(backupLayout)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		return p
	}
	ancient := write(10 * 24 * time.Hour)
	oldest := write(3 * time.Hour)
	older := write(2 * time.Hour)
	newest := write(time.Hour)
	unrelated := filepath.Join(dir, "hivewriter.log.keep")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o644))

	lf := &LogFile{cfg: LogConfig{FilePath: path, MaxBackups: 2, MaxAge: 7}}
	require.NoError(t, lf.prune(now))

	assert.NoFileExists(t, ancient)
	assert.NoFileExists(t, oldest)
	assert.FileExists(t, older)
	assert.FileExists(t, newest)
	assert.FileExists(t, unrelated)
}
