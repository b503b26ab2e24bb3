package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
	"github.com/jacentio/lattice/store"
)

// mockClient records every request and fails with err when set.
type mockClient struct {
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	deletes []*dynamodb.DeleteItemInput
	txs     []*dynamodb.TransactWriteItemsInput
	err     error
}

func (m *mockClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.puts = append(m.puts, in)
	if m.err != nil {
		return nil, m.err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockClient) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updates = append(m.updates, in)
	if m.err != nil {
		return nil, m.err
	}
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"version": &types.AttributeValueMemberN{Value: "4"},
	}}, nil
}

func (m *mockClient) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.deletes = append(m.deletes, in)
	if m.err != nil {
		return nil, m.err
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockClient) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	m.txs = append(m.txs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (m *mockClient) calls() int {
	return len(m.puts) + len(m.updates) + len(m.deletes) + len(m.txs)
}

func stringAttr(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		t.Fatalf("expected S attribute, got %T", av)
	}
	return s.Value
}

func numberAttr(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		t.Fatalf("expected N attribute, got %T", av)
	}
	return n.Value
}

func TestDynamoExecutor_Put(t *testing.T) {
	client := &mockClient{}
	exec := store.NewDynamoExecutor(client, testRegistry())

	_, err := store.NewPut("orders", store.PartitionKey("o-1"), Order{Total: 42}).
		IfNotExists("pk").
		Execute(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.puts) != 1 {
		t.Fatalf("expected 1 PutItem, got %d", len(client.puts))
	}
	in := client.puts[0]
	if aws.ToString(in.TableName) != "orders" {
		t.Errorf("expected table orders, got %s", aws.ToString(in.TableName))
	}
	if got := stringAttr(t, in.Item["pk"]); got != "o-1" {
		t.Errorf("expected pk o-1 merged into item, got %s", got)
	}
	if got := numberAttr(t, in.Item["Total"]); got != "42" {
		t.Errorf("expected Total 42, got %s", got)
	}
	if aws.ToString(in.ConditionExpression) != "attribute_not_exists(#0)" {
		t.Errorf("unexpected condition: %s", aws.ToString(in.ConditionExpression))
	}
	if in.ExpressionAttributeNames["#0"] != "pk" {
		t.Errorf("unexpected names: %v", in.ExpressionAttributeNames)
	}
	if in.ExpressionAttributeValues != nil {
		t.Errorf("expected no values, got %v", in.ExpressionAttributeValues)
	}
}

func TestDynamoExecutor_PutKeyConflict(t *testing.T) {
	client := &mockClient{}
	exec := store.NewDynamoExecutor(client, testRegistry())

	_, err := store.NewPut("orders", store.PartitionKey("o-1"), map[string]any{"pk": "o-2"}).
		Execute(context.Background(), exec)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if client.calls() != 0 {
		t.Errorf("expected no client calls, got %d", client.calls())
	}

	_, err = store.NewPut("orders", store.PartitionKey("o-1"), map[string]any{"pk": "o-1"}).
		Execute(context.Background(), exec)
	if err != nil {
		t.Errorf("expected matching key attribute to be accepted, got %v", err)
	}
}

func TestDynamoExecutor_Update(t *testing.T) {
	client := &mockClient{}
	exec := store.NewDynamoExecutor(client, testRegistry())

	out, err := store.NewUpdate("order_lines", store.CompositeKey("o-1", 3)).
		Increment("version", 1).
		If(expr.Eq("version", 3)).
		ReturnValues(types.ReturnValueUpdatedNew).
		Execute(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := numberAttr(t, out["version"]); got != "4" {
		t.Errorf("expected returned version 4, got %s", got)
	}

	in := client.updates[0]
	if got := stringAttr(t, in.Key["pk"]); got != "o-1" {
		t.Errorf("expected pk o-1, got %s", got)
	}
	if got := numberAttr(t, in.Key["sk"]); got != "3" {
		t.Errorf("expected sk 3, got %s", got)
	}
	if aws.ToString(in.UpdateExpression) != "SET #0 = #0 + :0" {
		t.Errorf("unexpected update: %s", aws.ToString(in.UpdateExpression))
	}
	if aws.ToString(in.ConditionExpression) != "#0 = :1" {
		t.Errorf("unexpected condition: %s", aws.ToString(in.ConditionExpression))
	}
	if got := numberAttr(t, in.ExpressionAttributeValues[":1"]); got != "3" {
		t.Errorf("expected :1=3, got %s", got)
	}
	if in.ReturnValues != types.ReturnValueUpdatedNew {
		t.Errorf("expected UPDATED_NEW, got %s", in.ReturnValues)
	}
}

func TestDynamoExecutor_Delete(t *testing.T) {
	client := &mockClient{}
	exec := store.NewDynamoExecutor(client, testRegistry())

	_, err := store.NewDelete("accounts", store.PartitionKey("a-1")).
		If(expr.Eq("balance", 0)).
		Execute(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := client.deletes[0]
	if got := stringAttr(t, in.Key["id"]); got != "a-1" {
		t.Errorf("expected id a-1, got %s", got)
	}
	if got := aws.ToString(in.ConditionExpression); got != "#0 = :0" {
		t.Errorf("unexpected condition: %s", got)
	}
}

func TestDynamoExecutor_StandaloneConditionCheck(t *testing.T) {
	client := &mockClient{}
	exec := store.NewDynamoExecutor(client, testRegistry())

	_, err := store.NewConditionCheck("accounts", store.PartitionKey("a-1"), expr.AttributeExists("id")).
		Execute(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.txs) != 1 || len(client.txs[0].TransactItems) != 1 {
		t.Fatalf("expected a one-item transaction, got %+v", client.txs)
	}
	check := client.txs[0].TransactItems[0].ConditionCheck
	if check == nil {
		t.Fatal("expected ConditionCheck item")
	}
	if aws.ToString(check.ConditionExpression) != "attribute_exists(#0)" {
		t.Errorf("unexpected condition: %s", aws.ToString(check.ConditionExpression))
	}
}

func TestDynamoExecutor_UnregisteredTable(t *testing.T) {
	client := &mockClient{}
	exec := store.NewDynamoExecutor(client, testRegistry())

	_, err := store.NewDelete("unknown", store.PartitionKey("x")).Execute(context.Background(), exec)
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if client.calls() != 0 {
		t.Errorf("expected no client calls, got %d", client.calls())
	}
}

func TestDynamoExecutor_ConditionFailed(t *testing.T) {
	client := &mockClient{err: &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}}
	exec := store.NewDynamoExecutor(client, testRegistry())

	_, err := store.NewPut("orders", store.PartitionKey("o-1"), map[string]any{"total": 1}).
		IfNotExists("pk").
		Execute(context.Background(), exec)
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed, got %v", err)
	}
	if !errors.Is(err, store.ErrOperation) {
		t.Errorf("expected ErrOperation, got %v", err)
	}
	var condErr *types.ConditionalCheckFailedException
	if !errors.As(err, &condErr) {
		t.Errorf("expected SDK error to be reachable, got %T", err)
	}
}

func TestDynamoExecutor_Transaction(t *testing.T) {
	client := &mockClient{}
	s := store.New(client, testRegistry(), store.DefaultConfig())

	tx := s.Transaction()
	err := tx.Add(
		s.Put("orders", store.PartitionKey("o-1"), map[string]any{"total": 10}).IfNotExists("pk"),
		s.Update("accounts", store.PartitionKey("a-1")).Decrement("balance", 10).If(expr.Gte("balance", 10)),
		s.Delete("order_lines", store.CompositeKey("o-0", 1)),
		s.Check("accounts", store.PartitionKey("a-2"), expr.AttributeExists("id")),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.WithIdempotencyToken("tok-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.txs) != 1 {
		t.Fatalf("expected one TransactWriteItems call, got %d", len(client.txs))
	}
	in := client.txs[0]
	if aws.ToString(in.ClientRequestToken) != "tok-1" {
		t.Errorf("expected token tok-1, got %q", aws.ToString(in.ClientRequestToken))
	}
	items := in.TransactItems
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	if items[0].Put == nil || items[1].Update == nil || items[2].Delete == nil || items[3].ConditionCheck == nil {
		t.Fatalf("unexpected item kinds: %+v", items)
	}
	if got := stringAttr(t, items[0].Put.Item["pk"]); got != "o-1" {
		t.Errorf("expected pk o-1, got %s", got)
	}
	if aws.ToString(items[1].Update.UpdateExpression) != "SET #0 = #0 - :0" {
		t.Errorf("unexpected update: %s", aws.ToString(items[1].Update.UpdateExpression))
	}
	if got := numberAttr(t, items[2].Delete.Key["sk"]); got != "1" {
		t.Errorf("expected sk 1, got %s", got)
	}
	if got := stringAttr(t, items[3].ConditionCheck.Key["id"]); got != "a-2" {
		t.Errorf("expected id a-2, got %s", got)
	}
}

func TestDynamoExecutor_TransactionCancelled(t *testing.T) {
	client := &mockClient{err: &types.TransactionCanceledException{
		Message: aws.String("Transaction cancelled"),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed"), Message: aws.String("The conditional request failed")},
		},
	}}
	s := store.New(client, testRegistry(), store.DefaultConfig())

	tx := s.Transaction()
	if err := tx.Add(transferOps()...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := tx.Execute(context.Background())

	var cancelled *store.CancellationError
	if !errors.As(err, &cancelled) {
		t.Fatalf("expected *CancellationError, got %v", err)
	}
	if len(cancelled.Reasons) != 1 || cancelled.Reasons[0].Index != 1 {
		t.Errorf("expected one reason for item 1, got %+v", cancelled.Reasons)
	}
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "balance >= 10 <- ConditionalCheckFailed") {
		t.Errorf("expected failing item annotated, got:\n%s", err.Error())
	}
	if tx.State() != store.TxAborted {
		t.Errorf("expected aborted, got %s", tx.State())
	}
}

func TestDynamoExecutor_TransactionInvalidItem(t *testing.T) {
	client := &mockClient{}
	exec := store.NewDynamoExecutor(client, testRegistry())

	err := exec.ExecuteTransaction(context.Background(), store.Payload{Items: []store.WireItem{
		{Kind: store.OpDelete, Table: "orders", Key: store.PartitionKey("o-1")},
		{Kind: store.OpDelete, Table: "order_lines", Key: store.PartitionKey("o-1")},
	}})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected ErrValidation for missing sort key, got %v", err)
	}
	if !strings.Contains(err.Error(), "item 1") {
		t.Errorf("expected failing index in error, got %v", err)
	}
	if client.calls() != 0 {
		t.Errorf("expected no client calls, got %d", client.calls())
	}
}
