// Package stream provides DynamoDB Streams handlers that mirror a table into
// another through transactional writes.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
	"github.com/jacentio/lattice/store"
)

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Executor dispatches both batched and single writes.
type Executor interface {
	store.ItemExecutor
	store.TransactionExecutor
}

// Options configures a Replicator.
type Options struct {
	// Table is the target table name.
	Table string

	// PartitionKey and SortKey name the key attributes shared by the source
	// and target tables. SortKey is empty for simple keys.
	PartitionKey string
	SortKey      string

	// VersionAttr, when set, guards every write so an older image never
	// overwrites a newer one.
	VersionAttr string

	// TTLAttr, when set, skips images whose TTL has already expired.
	TTLAttr string

	// MaxTransactionItems caps each batch. Default: 25
	MaxTransactionItems int
}

// Replicator processes DynamoDB stream events into a target table.
type Replicator struct {
	exec   Executor
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewReplicator creates a new stream replicator.
func NewReplicator(exec Executor, opts Options, logger *slog.Logger) *Replicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replicator{
		exec:   exec,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// batch is an open transaction and the records it was built from.
type batch struct {
	tx      *store.Transaction
	records []events.DynamoDBEventRecord
}

func (r *Replicator) newBatch() *batch {
	return &batch{tx: store.NewTransaction(r.exec, store.Config{
		MaxTransactionItems: r.opts.MaxTransactionItems,
		Logger:              r.logger,
	})}
}

// Handle mirrors every record of event in order. Records are grouped into
// transactions; a record whose key is already in the open transaction, or
// that would exceed the cap, flushes it first so stream order is kept.
// This function is designed to be used as an AWS Lambda handler.
func (r *Replicator) Handle(ctx context.Context, event events.DynamoDBEvent) error {
	b := r.newBatch()
	for _, record := range event.Records {
		op, err := r.operation(record)
		if err != nil {
			r.logger.Error("failed to convert record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
		if op == nil {
			continue
		}

		err = op.WithTransaction(b.tx)
		var txErr *store.TransactionError
		if errors.As(err, &txErr) && (txErr.Reason == store.ReasonDuplicateItem || txErr.Reason == store.ReasonTooManyItems) {
			if err := r.flush(ctx, b); err != nil {
				return err
			}
			b = r.newBatch()
			err = op.WithTransaction(b.tx)
		}
		if err != nil {
			return fmt.Errorf("record %s: %w", record.EventID, err)
		}
		b.records = append(b.records, record)
	}
	return r.flush(ctx, b)
}

// flush executes the open batch. When the batch is cancelled only by stale
// version guards, its records are replayed one at a time so the fresh ones
// still land.
func (r *Replicator) flush(ctx context.Context, b *batch) error {
	if b.tx.Len() == 0 {
		return nil
	}
	err := b.tx.Execute(ctx)
	if err == nil {
		r.logger.Info("replicated batch",
			"table", r.opts.Table,
			"records", len(b.records),
		)
		return nil
	}
	if r.opts.VersionAttr == "" || !onlyConditionFailures(err) {
		r.logger.Error("failed to replicate batch",
			"table", r.opts.Table,
			"records", len(b.records),
			"error", err,
		)
		return err
	}

	r.logger.Warn("batch rejected by version guard, replaying records individually",
		"table", r.opts.Table,
		"records", len(b.records),
	)
	for _, record := range b.records {
		op, err := r.operation(record)
		if err != nil {
			return err
		}
		// The TTL may have passed since the record was enlisted.
		if op == nil {
			r.logger.Debug("skipped expired record", "eventID", record.EventID)
			continue
		}
		if _, err := op.Execute(ctx, r.exec); err != nil {
			if errors.Is(err, store.ErrConditionFailed) {
				r.logger.Debug("skipped stale record", "eventID", record.EventID)
				continue
			}
			return err
		}
	}
	return nil
}

func onlyConditionFailures(err error) bool {
	var cancelled *store.CancellationError
	if !errors.As(err, &cancelled) || len(cancelled.Reasons) == 0 {
		return false
	}
	for _, reason := range cancelled.Reasons {
		if reason.Code != "ConditionalCheckFailed" {
			return false
		}
	}
	return true
}

// operation converts a record into the write that mirrors it. It returns a
// nil operation for records that need no write.
func (r *Replicator) operation(record events.DynamoDBEventRecord) (store.Operation, error) {
	key, err := r.key(record.Change.Keys)
	if err != nil {
		return nil, err
	}

	switch record.EventName {
	case EventInsert, EventModify:
		item, err := ConvertImage(record.Change.NewImage)
		if err != nil {
			return nil, fmt.Errorf("convert new image: %w", err)
		}
		if r.opts.TTLAttr != "" && store.IsDeleted(item, r.opts.TTLAttr, r.now()) {
			return nil, nil
		}
		put := store.NewPut(r.opts.Table, key, item)
		if version, ok := getNumberAttr(record.Change.NewImage, r.opts.VersionAttr); ok {
			put.If(expr.Or(
				expr.AttributeNotExists(r.opts.VersionAttr),
				expr.Lt(r.opts.VersionAttr, &types.AttributeValueMemberN{Value: version}),
			))
		}
		return put, nil

	case EventRemove:
		del := store.NewDelete(r.opts.Table, key)
		if version, ok := getNumberAttr(record.Change.OldImage, r.opts.VersionAttr); ok {
			del.If(expr.Or(
				expr.AttributeNotExists(r.opts.VersionAttr),
				expr.Lte(r.opts.VersionAttr, &types.AttributeValueMemberN{Value: version}),
			))
		}
		return del, nil
	}
	return nil, nil
}

// key extracts the canonical key from a stream record's key attributes.
func (r *Replicator) key(keys map[string]events.DynamoDBAttributeValue) (store.Key, error) {
	pk, ok := keys[r.opts.PartitionKey]
	if !ok {
		return store.Key{}, fmt.Errorf("record has no partition key %q", r.opts.PartitionKey)
	}
	k := store.Key{}
	var err error
	if k.Partition, err = ConvertAttribute(pk); err != nil {
		return store.Key{}, err
	}
	if r.opts.SortKey != "" {
		sk, ok := keys[r.opts.SortKey]
		if !ok {
			return store.Key{}, fmt.Errorf("record has no sort key %q", r.opts.SortKey)
		}
		if k.Sort, err = ConvertAttribute(sk); err != nil {
			return store.Key{}, err
		}
	}
	return k, nil
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeNumber {
		return v.Number(), true
	}
	return "", false
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		av, err := ConvertAttribute(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		result[k] = av
	}
	return result, nil
}

// ConvertAttribute converts one stream attribute value, recursing into lists
// and maps.
func ConvertAttribute(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, len(list))
		for i, item := range list {
			av, err := ConvertAttribute(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := ConvertImage(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported stream attribute type %v", v.DataType())
}
