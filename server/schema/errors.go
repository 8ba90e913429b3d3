package schema

import "github.com/gear6io/hivewriter/pkg/errors"

// Schema error codes
var (
	UnsupportedType         = errors.MustNewCode("schema.unsupported_type")
	PartitionKeyNotInSchema = errors.MustNewCode("schema.partition_key_not_in_schema")
	DuplicateField          = errors.MustNewCode("schema.duplicate_field")
	ValueCountMismatch      = errors.MustNewCode("schema.value_count_mismatch")
	InvalidPartitionValue   = errors.MustNewCode("schema.invalid_partition_value")
)

func newUnsupportedType(typeName, vocabulary string) *errors.Error {
	return errors.New(UnsupportedType, "unsupported type", nil).
		AddContext("type", typeName).
		AddContext("vocabulary", vocabulary)
}

// NewUnsupportedType reports a type outside the closed conversion table of a vocabulary
// ("catalog", "codec", "semantic").
func NewUnsupportedType(typeName, vocabulary string) *errors.Error {
	return newUnsupportedType(typeName, vocabulary)
}

// NewPartitionKeyNotInSchema reports a plan key that names no field.
func NewPartitionKeyNotInSchema(key string) *errors.Error {
	return errors.New(PartitionKeyNotInSchema, "partition key is not a field of the schema", nil).
		AddContext("partition_key", key)
}
