package store

import (
	"encoding/base64"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
)

// Key is the canonical primary key of an item: the partition key value and,
// for tables with a composite key, the sort key value. Attribute names are
// owned by the table's [TableSchema].
type Key struct {
	Partition any
	Sort      any
}

// PartitionKey builds a key for a table without a sort key.
func PartitionKey(partition any) Key {
	return Key{Partition: partition}
}

// CompositeKey builds a partition + sort key.
func CompositeKey(partition, sort any) Key {
	return Key{Partition: partition, Sort: sort}
}

// HasSort reports whether the key carries a sort key value.
func (k Key) HasSort() bool {
	return k.Sort != nil
}

// String renders the key for errors and debug output.
func (k Key) String() string {
	s := "pk=" + expr.RenderValue(k.Partition)
	if k.HasSort() {
		s += " sk=" + expr.RenderValue(k.Sort)
	}
	return s
}

// identity is the (table, pk, sk) tuple used to detect duplicate targets.
type identity struct {
	table   string
	pk      string
	sk      string
	hasSort bool
}

func identityOf(table string, k Key) identity {
	id := identity{table: table, pk: keyPart(k.Partition)}
	if k.HasSort() {
		id.sk = keyPart(k.Sort)
		id.hasSort = true
	}
	return id
}

// keyPart renders a key value tagged with its wire type. Numbers are
// normalised so 1.5 and "1.50" as N compare equal.
func keyPart(v any) string {
	av, err := expr.MarshalValue(v)
	if err != nil {
		return "?:" + expr.RenderValue(v)
	}
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + tv.Value
	case *types.AttributeValueMemberN:
		if r, ok := new(big.Rat).SetString(tv.Value); ok {
			return "N:" + r.RatString()
		}
		return "N:" + tv.Value
	case *types.AttributeValueMemberB:
		return "B:" + base64.StdEncoding.EncodeToString(tv.Value)
	}
	return "?:" + expr.RenderValue(av)
}

// Entity is implemented by types that know where they are stored.
type Entity interface {
	// TableName returns the DynamoDB table name for this entity type.
	TableName() string

	// GetKey returns the primary key for this entity.
	GetKey() Key
}
