package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
)

// Client is the subset of *dynamodb.Client used by DynamoExecutor.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoExecutor sends commands and transactions to DynamoDB. Canonical keys
// are translated to key attributes through the registry.
type DynamoExecutor struct {
	client   Client
	registry *Registry
}

// NewDynamoExecutor creates an executor over client.
func NewDynamoExecutor(client Client, registry *Registry) *DynamoExecutor {
	if registry == nil {
		registry = NewRegistry()
	}
	return &DynamoExecutor{client: client, registry: registry}
}

// wireInput is a WireItem with every value in DynamoDB form.
type wireInput struct {
	key    map[string]types.AttributeValue
	item   map[string]types.AttributeValue
	cond   *string
	update *string
	names  map[string]string
	values map[string]types.AttributeValue
}

func (e *DynamoExecutor) resolve(w WireItem) (wireInput, error) {
	key, err := e.registry.KeyAttributes(w.Table, w.Key)
	if err != nil {
		return wireInput{}, err
	}
	values, err := expr.MarshalValues(w.Values)
	if err != nil {
		return wireInput{}, &ValidationError{Table: w.Table, Message: "marshal expression values", Err: err}
	}
	in := wireInput{
		key:    key,
		cond:   optional(w.ConditionExpression),
		update: optional(w.UpdateExpression),
		names:  w.Names,
		values: values,
	}
	if w.Kind == OpPut {
		in.item, err = itemAttributes(w.Table, key, w.Item)
		if err != nil {
			return wireInput{}, err
		}
	}
	return in, nil
}

// itemAttributes marshals a put body and merges the key attributes into it.
// A body that already carries a key attribute must agree with the key.
func itemAttributes(table string, key map[string]types.AttributeValue, item any) (map[string]types.AttributeValue, error) {
	var attrs map[string]types.AttributeValue
	switch v := item.(type) {
	case map[string]types.AttributeValue:
		attrs = make(map[string]types.AttributeValue, len(v)+len(key))
		for k, av := range v {
			attrs[k] = av
		}
	default:
		av, err := attributevalue.Marshal(item)
		if err != nil {
			return nil, &ValidationError{Table: table, Message: "marshal item", Err: err}
		}
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return nil, &ValidationError{Table: table, Message: fmt.Sprintf("item must marshal to a map, got %T", item)}
		}
		attrs = m.Value
	}
	for name, av := range key {
		if existing, ok := attrs[name]; ok && keyPart(existing) != keyPart(av) {
			return nil, &ValidationError{
				Table:   table,
				Field:   name,
				Message: fmt.Sprintf("item value %s conflicts with key value %s", expr.RenderValue(existing), expr.RenderValue(av)),
			}
		}
		attrs[name] = av
	}
	return attrs, nil
}

// ExecuteItem sends a single command. A stand-alone condition check has no
// single-item API and is sent as a one-item transaction.
func (e *DynamoExecutor) ExecuteItem(ctx context.Context, cmd Command) (map[string]types.AttributeValue, error) {
	w := wireItem(cmd)
	in, err := e.resolve(w)
	if err != nil {
		return nil, err
	}

	switch cmd.Kind {
	case OpPut:
		out, err := e.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 aws.String(cmd.Table),
			Item:                      in.item,
			ConditionExpression:       in.cond,
			ExpressionAttributeNames:  in.names,
			ExpressionAttributeValues: in.values,
			ReturnValues:              cmd.ReturnValues,
		})
		if err != nil {
			return nil, mapItemError(err)
		}
		return out.Attributes, nil

	case OpUpdate:
		out, err := e.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(cmd.Table),
			Key:                       in.key,
			UpdateExpression:          in.update,
			ConditionExpression:       in.cond,
			ExpressionAttributeNames:  in.names,
			ExpressionAttributeValues: in.values,
			ReturnValues:              cmd.ReturnValues,
		})
		if err != nil {
			return nil, mapItemError(err)
		}
		return out.Attributes, nil

	case OpDelete:
		out, err := e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                 aws.String(cmd.Table),
			Key:                       in.key,
			ConditionExpression:       in.cond,
			ExpressionAttributeNames:  in.names,
			ExpressionAttributeValues: in.values,
			ReturnValues:              cmd.ReturnValues,
		})
		if err != nil {
			return nil, mapItemError(err)
		}
		return out.Attributes, nil

	case OpConditionCheck:
		item, err := transactItem(w, in)
		if err != nil {
			return nil, err
		}
		_, err = e.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{item},
		})
		if err != nil {
			return nil, mapTransactionError(err)
		}
		return nil, nil
	}
	return nil, &ValidationError{Table: cmd.Table, Message: fmt.Sprintf("unsupported command kind %s", cmd.Kind)}
}

// ExecuteTransaction sends payload as a single TransactWriteItems call.
func (e *DynamoExecutor) ExecuteTransaction(ctx context.Context, payload Payload) error {
	items := make([]types.TransactWriteItem, 0, len(payload.Items))
	for i, w := range payload.Items {
		in, err := e.resolve(w)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		item, err := transactItem(w, in)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}

	input := &dynamodb.TransactWriteItemsInput{TransactItems: items}
	if payload.ClientRequestToken != "" {
		input.ClientRequestToken = aws.String(payload.ClientRequestToken)
	}
	if _, err := e.client.TransactWriteItems(ctx, input); err != nil {
		return mapTransactionError(err)
	}
	return nil
}

func transactItem(w WireItem, in wireInput) (types.TransactWriteItem, error) {
	table := aws.String(w.Table)
	switch w.Kind {
	case OpPut:
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                 table,
			Item:                      in.item,
			ConditionExpression:       in.cond,
			ExpressionAttributeNames:  in.names,
			ExpressionAttributeValues: in.values,
		}}, nil
	case OpUpdate:
		return types.TransactWriteItem{Update: &types.Update{
			TableName:                 table,
			Key:                       in.key,
			UpdateExpression:          in.update,
			ConditionExpression:       in.cond,
			ExpressionAttributeNames:  in.names,
			ExpressionAttributeValues: in.values,
		}}, nil
	case OpDelete:
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 table,
			Key:                       in.key,
			ConditionExpression:       in.cond,
			ExpressionAttributeNames:  in.names,
			ExpressionAttributeValues: in.values,
		}}, nil
	case OpConditionCheck:
		if in.cond == nil {
			return types.TransactWriteItem{}, &ValidationError{Table: w.Table, Message: "condition check requires a condition"}
		}
		return types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:                 table,
			Key:                       in.key,
			ConditionExpression:       in.cond,
			ExpressionAttributeNames:  in.names,
			ExpressionAttributeValues: in.values,
		}}, nil
	}
	return types.TransactWriteItem{}, &ValidationError{Table: w.Table, Message: fmt.Sprintf("unsupported item kind %s", w.Kind)}
}

func mapItemError(err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %w", ErrConditionFailed, err)
	}
	return err
}

// mapTransactionError surfaces per-item cancellation reasons. Items that did
// not cause the cancellation report "None" and are dropped.
func mapTransactionError(err error) error {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return err
	}
	var reasons []CancellationReason
	for i, reason := range txErr.CancellationReasons {
		code := aws.ToString(reason.Code)
		if code == "" || code == "None" {
			continue
		}
		reasons = append(reasons, CancellationReason{
			Index:   i,
			Code:    code,
			Message: aws.ToString(reason.Message),
		})
	}
	return &CancellationError{Reasons: reasons, Err: err}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
