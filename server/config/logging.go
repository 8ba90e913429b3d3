package config

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/rs/zerolog"
)

// backupLayout sorts lexically in time order.
const backupLayout = "20060102T150405.000000000"

// LogFile is the file sink of a logger. Opening it rotates the current file
// once it has reached MaxSize megabytes, then prunes backups past MaxBackups
// or older than MaxAge days.
type LogFile struct {
	cfg  LogConfig
	file *os.File
}

// OpenLogFile opens cfg.FilePath for appending, truncating it when Cleanup is set.
func OpenLogFile(cfg LogConfig) (*LogFile, error) {
	if cfg.FilePath == "" {
		return nil, errors.New(ErrLogFilePathRequired, "no log file path specified", nil)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, errors.New(ErrLogDirectoryCreationFailed, "failed to create log directory", err).
			AddContext("path", cfg.FilePath)
	}

	lf := &LogFile{cfg: cfg}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if cfg.Cleanup {
		flags |= os.O_TRUNC
	} else if err := lf.rotate(time.Now()); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(cfg.FilePath, flags, 0o644)
	if err != nil {
		return nil, errors.New(ErrLogFileOpenFailed, "failed to open log file", err).AddContext("path", cfg.FilePath)
	}
	lf.file = f
	return lf, nil
}

func (lf *LogFile) Write(p []byte) (int, error) {
	return lf.file.Write(p)
}

// Close is safe on a nil LogFile and on repeated calls.
func (lf *LogFile) Close() error {
	if lf == nil || lf.file == nil {
		return nil
	}
	err := lf.file.Close()
	lf.file = nil
	return err
}

func (lf *LogFile) rotate(now time.Time) error {
	if lf.cfg.MaxSize <= 0 {
		return nil
	}
	info, err := os.Stat(lf.cfg.FilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.New(ErrLogFileStatFailed, "failed to stat log file", err).AddContext("path", lf.cfg.FilePath)
	}
	if info.Size() < int64(lf.cfg.MaxSize)<<20 {
		return nil
	}

	backup := lf.cfg.FilePath + "." + now.UTC().Format(backupLayout)
	if err := os.Rename(lf.cfg.FilePath, backup); err != nil {
		return errors.New(ErrLogRotationFailed, "failed to rotate log file", err).AddContext("backup", backup)
	}
	return lf.prune(now)
}

// prune removes backups older than MaxAge, then the oldest beyond MaxBackups.
func (lf *LogFile) prune(now time.Time) error {
	if lf.cfg.MaxBackups <= 0 && lf.cfg.MaxAge <= 0 {
		return nil
	}
	backups, err := lf.backups()
	if err != nil {
		return err
	}

	var stale []string
	if lf.cfg.MaxAge > 0 {
		cutoff := now.UTC().AddDate(0, 0, -lf.cfg.MaxAge)
		kept := backups[:0]
		for _, b := range backups {
			if b.taken.Before(cutoff) {
				stale = append(stale, b.path)
				continue
			}
			kept = append(kept, b)
		}
		backups = kept
	}
	if n := lf.cfg.MaxBackups; n > 0 && len(backups) > n {
		for _, b := range backups[:len(backups)-n] {
			stale = append(stale, b.path)
		}
	}

	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return errors.New(ErrLogBackupRemoveFailed, "failed to remove old log backup", err).AddContext("backup", path)
		}
	}
	return nil
}

type logBackup struct {
	path  string
	taken time.Time
}

// backups lists rotated files of the log, oldest first.
func (lf *LogFile) backups() ([]logBackup, error) {
	dir := filepath.Dir(lf.cfg.FilePath)
	prefix := filepath.Base(lf.cfg.FilePath) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(ErrLogBackupReadFailed, "failed to read log directory", err).AddContext("dir", dir)
	}

	var out []logBackup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		taken, err := time.Parse(backupLayout, strings.TrimPrefix(name, prefix))
		if err != nil {
			continue
		}
		out = append(out, logBackup{path: filepath.Join(dir, name), taken: taken})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].taken.Before(out[j].taken) })
	return out, nil
}

// SetupLogger builds the logger described by cfg.Log. Console output goes to
// stderr so command output on stdout stays machine readable. The returned
// LogFile is nil without a file path; callers close it when done logging.
func SetupLogger(cfg *Config) (zerolog.Logger, *LogFile, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if cfg.Log.Console {
		if cfg.Log.Format == "json" {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		}
	}

	var file *LogFile
	if cfg.Log.FilePath != "" {
		file, err = OpenLogFile(cfg.Log)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, file)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).With().
		Timestamp().
		Str("service", "hivewriter").
		Logger()
	return logger, file, nil
}
