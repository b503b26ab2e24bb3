package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
)

// TableSchema describes a table's primary key attributes.
type TableSchema struct {
	// Name is the DynamoDB table name (e.g., "orders").
	Name string

	// PartitionKey is the partition key attribute name (e.g., "pk").
	PartitionKey string

	// SortKey is the sort key attribute name; empty for simple keys.
	SortKey string
}

// KeyAttributes translates a canonical Key into the table's key attributes.
func (t TableSchema) KeyAttributes(k Key) (map[string]types.AttributeValue, error) {
	if k.Partition == nil {
		return nil, &ValidationError{Table: t.Name, Field: t.PartitionKey, Message: "partition key value is required"}
	}
	if t.SortKey == "" && k.HasSort() {
		return nil, &ValidationError{Table: t.Name, Message: "table has no sort key but key has a sort value"}
	}
	if t.SortKey != "" && !k.HasSort() {
		return nil, &ValidationError{Table: t.Name, Field: t.SortKey, Message: "sort key value is required"}
	}

	pk, err := expr.MarshalValue(k.Partition)
	if err != nil {
		return nil, &ValidationError{Table: t.Name, Field: t.PartitionKey, Message: "marshal partition key", Err: err}
	}
	attrs := map[string]types.AttributeValue{t.PartitionKey: pk}
	if t.SortKey != "" {
		sk, err := expr.MarshalValue(k.Sort)
		if err != nil {
			return nil, &ValidationError{Table: t.Name, Field: t.SortKey, Message: "marshal sort key", Err: err}
		}
		attrs[t.SortKey] = sk
	}
	return attrs, nil
}

// Registry holds the key schema of every table the store writes to.
type Registry struct {
	tables []TableSchema
	byName map[string]TableSchema
}

// NewRegistry creates a new empty Registry.
func NewRegistry(schemas ...TableSchema) *Registry {
	r := &Registry{
		tables: []TableSchema{},
		byName: make(map[string]TableSchema),
	}
	for _, s := range schemas {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a table schema.
func (r *Registry) Register(schema TableSchema) {
	if _, exists := r.byName[schema.Name]; exists {
		for i := range r.tables {
			if r.tables[i].Name == schema.Name {
				r.tables[i] = schema
			}
		}
	} else {
		r.tables = append(r.tables, schema)
	}
	r.byName[schema.Name] = schema
}

// Schema returns the schema registered for table.
func (r *Registry) Schema(table string) (TableSchema, bool) {
	s, ok := r.byName[table]
	return s, ok
}

// Tables returns all registered schemas in registration order.
func (r *Registry) Tables() []TableSchema {
	return append([]TableSchema(nil), r.tables...)
}

// KeyAttributes resolves table's schema and translates k.
func (r *Registry) KeyAttributes(table string, k Key) (map[string]types.AttributeValue, error) {
	schema, ok := r.Schema(table)
	if !ok {
		return nil, &ValidationError{Table: table, Message: fmt.Sprintf("no key schema registered for table %q", table)}
	}
	return schema.KeyAttributes(k)
}
