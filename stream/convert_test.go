package stream

import (
	"bytes"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestConvertAttribute_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		input events.DynamoDBAttributeValue
		check func(types.AttributeValue) bool
	}{
		{"string", events.NewStringAttribute("x"), func(av types.AttributeValue) bool {
			s, ok := av.(*types.AttributeValueMemberS)
			return ok && s.Value == "x"
		}},
		{"number", events.NewNumberAttribute("-1.5"), func(av types.AttributeValue) bool {
			n, ok := av.(*types.AttributeValueMemberN)
			return ok && n.Value == "-1.5"
		}},
		{"binary", events.NewBinaryAttribute([]byte{1, 2}), func(av types.AttributeValue) bool {
			b, ok := av.(*types.AttributeValueMemberB)
			return ok && bytes.Equal(b.Value, []byte{1, 2})
		}},
		{"bool", events.NewBooleanAttribute(true), func(av types.AttributeValue) bool {
			b, ok := av.(*types.AttributeValueMemberBOOL)
			return ok && b.Value
		}},
		{"null", events.NewNullAttribute(), func(av types.AttributeValue) bool {
			n, ok := av.(*types.AttributeValueMemberNULL)
			return ok && n.Value
		}},
		{"string set", events.NewStringSetAttribute([]string{"a", "b"}), func(av types.AttributeValue) bool {
			s, ok := av.(*types.AttributeValueMemberSS)
			return ok && len(s.Value) == 2
		}},
		{"number set", events.NewNumberSetAttribute([]string{"1"}), func(av types.AttributeValue) bool {
			s, ok := av.(*types.AttributeValueMemberNS)
			return ok && s.Value[0] == "1"
		}},
		{"binary set", events.NewBinarySetAttribute([][]byte{{9}}), func(av types.AttributeValue) bool {
			s, ok := av.(*types.AttributeValueMemberBS)
			return ok && s.Value[0][0] == 9
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, err := ConvertAttribute(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(av) {
				t.Errorf("unexpected conversion: %#v", av)
			}
		})
	}
}

func TestConvertImage_Nested(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"pk": events.NewStringAttribute("o-1"),
		"lines": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
				"sku": events.NewStringAttribute("s-1"),
				"qty": events.NewNumberAttribute("2"),
			}),
		}),
	}

	item, err := ConvertImage(image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines, ok := item["lines"].(*types.AttributeValueMemberL)
	if !ok || len(lines.Value) != 1 {
		t.Fatalf("expected list of 1, got %#v", item["lines"])
	}
	line, ok := lines.Value[0].(*types.AttributeValueMemberM)
	if !ok {
		t.Fatalf("expected map, got %#v", lines.Value[0])
	}
	if qty, ok := line.Value["qty"].(*types.AttributeValueMemberN); !ok || qty.Value != "2" {
		t.Errorf("expected qty 2, got %#v", line.Value["qty"])
	}
}

func TestConvertImage_Empty(t *testing.T) {
	item, err := ConvertImage(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(item) != 0 {
		t.Errorf("expected empty item, got %d attributes", len(item))
	}
}

func TestGetNumberAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"v":    events.NewNumberAttribute("12"),
		"name": events.NewStringAttribute("x"),
	}
	tests := []struct {
		key      string
		expected string
		ok       bool
	}{
		{"v", "12", true},
		{"name", "", false},
		{"missing", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := getNumberAttr(image, tt.key)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("getNumberAttr(%q): expected (%q, %v), got (%q, %v)", tt.key, tt.expected, tt.ok, got, ok)
		}
	}
}

func BenchmarkConvertImage(b *testing.B) {
	image := map[string]events.DynamoDBAttributeValue{
		"pk":   events.NewStringAttribute("o-1"),
		"n":    events.NewNumberAttribute("42"),
		"tags": events.NewStringSetAttribute([]string{"a", "b", "c"}),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ConvertImage(image)
	}
}
