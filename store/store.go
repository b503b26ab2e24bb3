package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
)

// Store ties a registry, an executor and a config together and hands out
// builders and transactions bound to them.
type Store struct {
	config   Config
	registry *Registry
	executor *DynamoExecutor
}

// New creates a new Store instance.
func New(client Client, registry *Registry, cfg Config) *Store {
	cfg.validate()
	if registry == nil {
		registry = NewRegistry()
	}
	return &Store{
		config:   cfg,
		registry: registry,
		executor: NewDynamoExecutor(client, registry),
	}
}

// NewFromConfig loads the default AWS configuration and creates a Store
// backed by a DynamoDB client, pointed at cfg.Endpoint when set.
func NewFromConfig(ctx context.Context, registry *Registry, cfg Config, optFns ...func(*config.LoadOptions) error) (*Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, registry, cfg), nil
}

// Registry returns the table registry.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Executor returns the DynamoDB executor, usable as both ItemExecutor and
// TransactionExecutor.
func (s *Store) Executor() *DynamoExecutor {
	return s.executor
}

// Config returns the validated configuration.
func (s *Store) Config() Config {
	return s.config
}

// Put builds a put of item at key in table.
func (s *Store) Put(table string, key Key, item any) *Put {
	return NewPut(table, key, item)
}

// PutEntity builds a put of item at the entity's table and key.
func (s *Store) PutEntity(e Entity, item any) *Put {
	return NewPut(e.TableName(), e.GetKey(), item)
}

// Update builds an update of the item at key in table.
func (s *Store) Update(table string, key Key) *Update {
	return NewUpdate(table, key)
}

// UpdateEntity builds an update at the entity's table and key.
func (s *Store) UpdateEntity(e Entity) *Update {
	return NewUpdate(e.TableName(), e.GetKey())
}

// Delete builds a delete of the item at key in table.
func (s *Store) Delete(table string, key Key) *Delete {
	return NewDelete(table, key)
}

// DeleteEntity builds a delete at the entity's table and key.
func (s *Store) DeleteEntity(e Entity) *Delete {
	return NewDelete(e.TableName(), e.GetKey())
}

// Check builds a condition check of cond against the item at key.
func (s *Store) Check(table string, key Key, cond expr.Condition) *ConditionCheck {
	return NewConditionCheck(table, key, cond)
}

// Transaction starts an empty transaction dispatched through the store.
func (s *Store) Transaction() *Transaction {
	return NewTransaction(s.executor, s.config)
}

// Execute runs op on its own through the store's executor.
func (s *Store) Execute(ctx context.Context, op Operation) (map[string]types.AttributeValue, error) {
	return op.Execute(ctx, s.executor)
}
