package catalog

import (
	"encoding/json"

	"github.com/apache/iceberg-go"
	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/schema"
)

// Table properties carrying the Iceberg view of a table definition
const (
	PropIcebergSchema        = "iceberg.schema"
	PropIcebergPartitionSpec = "iceberg.partition-spec"
)

// partition field ids start after the reserved range, as in Iceberg metadata
const firstPartitionFieldID = 1000

// IcebergType maps a semantic type to its Iceberg equivalent. Int16 widens to int.
func IcebergType(t schema.Type) (iceberg.Type, error) {
	switch t.Kind {
	case schema.KindBoolean:
		return iceberg.PrimitiveTypes.Bool, nil
	case schema.KindInt16, schema.KindInt32:
		return iceberg.PrimitiveTypes.Int32, nil
	case schema.KindInt64:
		return iceberg.PrimitiveTypes.Int64, nil
	case schema.KindFloat32:
		return iceberg.PrimitiveTypes.Float32, nil
	case schema.KindFloat64:
		return iceberg.PrimitiveTypes.Float64, nil
	case schema.KindString:
		return iceberg.PrimitiveTypes.String, nil
	case schema.KindBinary:
		return iceberg.PrimitiveTypes.Binary, nil
	case schema.KindDecimal:
		return iceberg.DecimalTypeOf(int(t.Precision), int(t.Scale)), nil
	case schema.KindDate:
		return iceberg.PrimitiveTypes.Date, nil
	case schema.KindTimestampMillis:
		return iceberg.PrimitiveTypes.TimestampTz, nil
	}
	return nil, schema.NewUnsupportedType(t.String(), "iceberg")
}

// IcebergSchema builds an Iceberg schema with field ids assigned in field order
func IcebergSchema(s schema.Struct) (*iceberg.Schema, error) {
	fields := make([]iceberg.NestedField, len(s.Fields))
	for i, f := range s.Fields {
		t, err := IcebergType(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = iceberg.NestedField{
			ID:       i + 1,
			Name:     f.Name,
			Type:     t,
			Required: !f.Nullable,
		}
	}
	return iceberg.NewSchema(0, fields...), nil
}

// IcebergPartitionSpec builds an identity partition spec over plan keys
func IcebergPartitionSpec(s schema.Struct, plan schema.PartitionPlan) (iceberg.PartitionSpec, error) {
	if err := plan.Validate(s); err != nil {
		return iceberg.PartitionSpec{}, err
	}
	fields := make([]iceberg.PartitionField, len(plan.Keys))
	for i, key := range plan.Keys {
		fields[i] = iceberg.PartitionField{
			SourceID:  s.IndexOf(key) + 1,
			FieldID:   firstPartitionFieldID + i,
			Name:      key,
			Transform: iceberg.IdentityTransform{},
		}
	}
	return iceberg.NewPartitionSpec(fields...), nil
}

// IcebergProperties serializes the Iceberg schema and partition spec of the
// full table schema (partition keys included) into table properties.
func IcebergProperties(s schema.Struct, plan schema.PartitionPlan) (map[string]string, error) {
	iceSchema, err := IcebergSchema(s)
	if err != nil {
		return nil, err
	}
	spec, err := IcebergPartitionSpec(s, plan)
	if err != nil {
		return nil, err
	}

	schemaJSON, err := json.Marshal(iceSchema)
	if err != nil {
		return nil, errors.New(errors.CommonInternal, "failed to serialize iceberg schema", err)
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, errors.New(errors.CommonInternal, "failed to serialize iceberg partition spec", err)
	}

	return map[string]string{
		PropIcebergSchema:        string(schemaJSON),
		PropIcebergPartitionSpec: string(specJSON),
	}, nil
}
