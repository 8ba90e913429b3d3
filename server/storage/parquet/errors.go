package parquet

import "github.com/gear6io/hivewriter/pkg/errors"

// Parquet codec error codes
var (
	CompressionUnsupported  = errors.MustNewCode("parquet.compression_unsupported")
	CompressionInvalidLevel = errors.MustNewCode("parquet.compression_invalid_level")
	EncodeFailed            = errors.MustNewCode("parquet.encode_failed")
	DecodeFailed            = errors.MustNewCode("parquet.decode_failed")
)

func newEncodeFailed(path string, cause error) *errors.Error {
	return errors.New(EncodeFailed, "failed to encode records", cause).AddContext("path", path)
}

func newDecodeFailed(path string, cause error) *errors.Error {
	return errors.New(DecodeFailed, "failed to decode records", cause).AddContext("path", path)
}
