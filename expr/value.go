package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StringSet is a DynamoDB string set (SS) literal.
type StringSet []string

// NumberSet is a DynamoDB number set (NS) literal. Members are decimal strings.
type NumberSet []string

// BinarySet is a DynamoDB binary set (BS) literal.
type BinarySet [][]byte

// IntSet builds a NumberSet from integers.
func IntSet(vs ...int64) NumberSet {
	out := make(NumberSet, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatInt(v, 10)
	}
	return out
}

// FloatSet builds a NumberSet from floats.
func FloatSet(vs ...float64) NumberSet {
	out := make(NumberSet, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

// MarshalValue converts a literal to its wire form. Set literals become
// SS/NS/BS, AttributeValues pass through, everything else goes through
// attributevalue.Marshal.
func MarshalValue(v any) (types.AttributeValue, error) {
	switch tv := v.(type) {
	case nil:
		return nil, newError(KindValueMissing, "", "value is nil")
	case types.AttributeValue:
		return tv, nil
	case StringSet:
		if len(tv) == 0 {
			return nil, newError(KindInvalidValue, "", "string set is empty")
		}
		return &types.AttributeValueMemberSS{Value: append([]string(nil), tv...)}, nil
	case NumberSet:
		if len(tv) == 0 {
			return nil, newError(KindInvalidValue, "", "number set is empty")
		}
		for _, n := range tv {
			if _, err := strconv.ParseFloat(n, 64); err != nil {
				return nil, newError(KindInvalidValue, "", "number set member %q is not numeric", n)
			}
		}
		return &types.AttributeValueMemberNS{Value: append([]string(nil), tv...)}, nil
	case BinarySet:
		if len(tv) == 0 {
			return nil, newError(KindInvalidValue, "", "binary set is empty")
		}
		return &types.AttributeValueMemberBS{Value: append([][]byte(nil), tv...)}, nil
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, &Error{Kind: KindInvalidValue, Message: fmt.Sprintf("marshal %T: %v", v, err)}
	}
	if av == nil {
		return nil, newError(KindInvalidValue, "", "unsupported type %T", v)
	}
	return av, nil
}

// MarshalValues converts an alias -> literal map to wire form.
func MarshalValues(values map[string]any) (map[string]types.AttributeValue, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(values))
	for alias, v := range values {
		av, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("value %s: %w", alias, err)
		}
		out[alias] = av
	}
	return out, nil
}

// RenderValue renders a literal for humans: strings are quoted, sets are
// rendered as Set(n){v1, v2}, everything else as JSON.
func RenderValue(v any) string {
	switch tv := v.(type) {
	case string:
		return quote(tv)
	case StringSet:
		return renderSet(len(tv), func(i int) string { return quote(tv[i]) })
	case NumberSet:
		return renderSet(len(tv), func(i int) string { return tv[i] })
	case BinarySet:
		return renderSet(len(tv), func(i int) string { return renderJSON(tv[i]) })
	case types.AttributeValue:
		return renderAttributeValue(tv)
	case map[string]types.AttributeValue:
		return renderAttributeValue(&types.AttributeValueMemberM{Value: tv})
	}
	return renderJSON(v)
}

func renderAttributeValue(av types.AttributeValue) string {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return quote(tv.Value)
	case *types.AttributeValueMemberN:
		return tv.Value
	case *types.AttributeValueMemberSS:
		return RenderValue(StringSet(tv.Value))
	case *types.AttributeValueMemberNS:
		return RenderValue(NumberSet(tv.Value))
	case *types.AttributeValueMemberBS:
		return RenderValue(BinarySet(tv.Value))
	}
	var out any
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return fmt.Sprintf("%T", av)
	}
	return renderJSON(out)
}

func renderSet(n int, member func(int) string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = member(i)
	}
	return fmt.Sprintf("Set(%d){%s}", n, strings.Join(parts, ", "))
}

// renderJSON encodes v without HTML escaping so literals read as written.
func renderJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func quote(s string) string {
	return renderJSON(s)
}
