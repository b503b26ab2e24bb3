// Package store builds single-item DynamoDB writes and coordinates them into
// all-or-nothing transactions.
//
// # Builders
//
// [Put], [Update], [Delete] and [ConditionCheck] collect a table, a canonical
// [Key] and an optional condition built with package expr:
//
//	put := store.NewPut("orders", store.PartitionKey("o-1"), order).
//	    If(expr.AttributeNotExists("pk"))
//
// Compile returns a frozen [Command]; every call compiles afresh, so a Command
// is never mutated by later builder calls. A builder is consumed by exactly
// one of Execute or WithTransaction.
//
// # Transactions
//
// A [Transaction] rejects a second item targeting the same (table, key) and
// enforces the configured item cap before anything is sent:
//
//	tx := s.Transaction()
//	if err := tx.Add(put, s.Update("accounts", store.PartitionKey("a-1")).Decrement("balance", 10)); err != nil {
//	    return err
//	}
//	if err := tx.Execute(ctx); err != nil {
//	    return err
//	}
//
// # Keys
//
// A [Key] holds values only. The attribute names of each table are registered
// once in a [Registry] and applied by [DynamoExecutor] on the wire.
//
// # Errors
//
//   - [ErrValidation] - a builder or command cannot be compiled
//   - [ErrTransaction] - duplicate item, empty transaction, cap exceeded, reuse
//   - [ErrOperation] - the executor failed; the error lists every item readably
//   - [ErrConditionFailed] - a condition evaluated to false
//
// Expression errors from package expr are returned unchanged and match
// expr.ErrExpression.
package store
