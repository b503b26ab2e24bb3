package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemExecutor dispatches a single compiled command.
type ItemExecutor interface {
	// ExecuteItem sends cmd and returns any attributes requested through
	// Command.ReturnValues.
	ExecuteItem(ctx context.Context, cmd Command) (map[string]types.AttributeValue, error)
}

// TransactionExecutor dispatches a transaction payload. The store commits
// every item or none of them.
type TransactionExecutor interface {
	ExecuteTransaction(ctx context.Context, payload Payload) error
}

// WireItem is one tagged entry of a transaction payload.
type WireItem struct {
	Kind                OpKind
	Table               string
	Key                 Key
	Item                any
	ConditionExpression string
	UpdateExpression    string
	Names               map[string]string
	Values              map[string]any
}

// Payload is the ordered transaction handed to a TransactionExecutor.
type Payload struct {
	Items              []WireItem
	ClientRequestToken string
}

func wireItem(cmd Command) WireItem {
	return WireItem{
		Kind:                cmd.Kind,
		Table:               cmd.Table,
		Key:                 cmd.Key,
		Item:                cmd.Item,
		ConditionExpression: cmd.ConditionExpression(),
		UpdateExpression:    cmd.UpdateExpression(),
		Names:               cmd.Names,
		Values:              cmd.Values,
	}
}

// ExecutorFunc adapts a function to TransactionExecutor.
type ExecutorFunc func(ctx context.Context, payload Payload) error

// ExecuteTransaction calls f(ctx, payload).
func (f ExecutorFunc) ExecuteTransaction(ctx context.Context, payload Payload) error {
	return f(ctx, payload)
}
