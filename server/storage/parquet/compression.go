package parquet

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/gear6io/hivewriter/pkg/errors"
)

// CompressionOptions selects the page compression of written files.
// Level 0 keeps the codec default.
type CompressionOptions struct {
	Compression       string
	CompressionLevel  int
	ColumnCompression map[string]string
}

// DefaultCompressionOptions returns snappy with the codec default level
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{Compression: "snappy"}
}

// GetCompressionCodec converts a compression name to a Parquet codec
func GetCompressionCodec(compression string) (compress.Compression, error) {
	switch strings.ToLower(compression) {
	case "", "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip", "gz":
		return compress.Codecs.Gzip, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, errors.New(CompressionUnsupported, "unsupported compression type", nil).
			AddContext("compression", compression)
	}
}

// Validate checks every codec name and the level against the main codec
func (o CompressionOptions) Validate() error {
	if _, err := GetCompressionCodec(o.Compression); err != nil {
		return err
	}
	if o.CompressionLevel != 0 {
		if err := validateCompressionLevel(o.Compression, o.CompressionLevel); err != nil {
			return err
		}
	}
	for column, compression := range o.ColumnCompression {
		if _, err := GetCompressionCodec(compression); err != nil {
			return errors.AsError(err).AddContext("column", column)
		}
	}
	return nil
}

// ForColumn returns the compression name used for a column
func (o CompressionOptions) ForColumn(column string) string {
	if c, ok := o.ColumnCompression[column]; ok {
		return c
	}
	return o.Compression
}

func validateCompressionLevel(compression string, level int) error {
	var lo, hi int
	switch strings.ToLower(compression) {
	case "gzip", "gz":
		lo, hi = 1, 9
	case "brotli":
		lo, hi = 1, 11
	case "zstd":
		lo, hi = 1, 22
	default:
		// snappy, lz4 and uncompressed have no levels
		return nil
	}
	if level < lo || level > hi {
		return errors.New(CompressionInvalidLevel, "compression level out of range", nil).
			AddContext("compression", compression).
			AddContext("level", strconv.Itoa(level)).
			AddContext("range", strconv.Itoa(lo)+"-"+strconv.Itoa(hi))
	}
	return nil
}

func requiresCompressionLevel(compression string) bool {
	switch strings.ToLower(compression) {
	case "gzip", "gz", "brotli", "zstd":
		return true
	default:
		return false
	}
}
