package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
)

// Operation is a single-item write or check that can either be executed on
// its own or enlisted in a transaction, but not both.
type Operation interface {
	// Compile returns a frozen Command. Each call compiles afresh.
	Compile() (Command, error)

	// Debug compiles and renders the command with aliases substituted.
	Debug() (Debug, error)

	// Execute dispatches the operation on its own.
	Execute(ctx context.Context, exec ItemExecutor) (map[string]types.AttributeValue, error)

	// WithTransaction enlists the operation in tx.
	WithTransaction(tx *Transaction) error
}

// operation holds the state shared by every builder.
type operation struct {
	kind         OpKind
	table        string
	key          Key
	cond         expr.Condition
	returnValues types.ReturnValue
	consumed     bool
	err          error
}

func (o *operation) setCondition(c expr.Condition) {
	o.cond = c
}

func (o *operation) andCondition(c expr.Condition) {
	if o.cond == nil {
		o.cond = c
		return
	}
	o.cond = expr.And(o.cond, c)
}

func (o *operation) validateTarget() error {
	if o.table == "" {
		return &ValidationError{Message: fmt.Sprintf("%s requires a table name", o.kind)}
	}
	if o.key.Partition == nil {
		return &ValidationError{Table: o.table, Message: fmt.Sprintf("%s requires a partition key value", o.kind)}
	}
	return nil
}

// compile builds a Command from the shared state. The update expression is
// compiled before the condition so both draw aliases from one allocator.
func (o *operation) compile(item any, actions []expr.UpdateAction, requireCondition bool) (Command, error) {
	if o.err != nil {
		return Command{}, o.err
	}
	if err := o.validateTarget(); err != nil {
		return Command{}, err
	}

	cmd := Command{
		Kind:         o.kind,
		Table:        o.table,
		Key:          o.key,
		Item:         item,
		ReturnValues: o.returnValues,
	}
	p := expr.NewParams()

	if o.kind == OpUpdate {
		if len(actions) == 0 {
			return Command{}, &ValidationError{Table: o.table, Message: "no update actions specified"}
		}
		f, err := expr.CompileUpdate(actions, p)
		if err != nil {
			return Command{}, fmt.Errorf("%s %s: update: %w", o.kind, o.table, err)
		}
		cmd.Update = f
	}

	if o.cond != nil {
		f, err := expr.Compile(o.cond, p)
		if err != nil {
			return Command{}, fmt.Errorf("%s %s: condition: %w", o.kind, o.table, err)
		}
		cmd.Condition = f
	} else if requireCondition {
		return Command{}, &ValidationError{Table: o.table, Message: fmt.Sprintf("%s requires a condition", o.kind)}
	}

	cmd.Names = p.Names()
	cmd.Values = p.Values()
	return cmd, nil
}

func (o *operation) debug(compile func() (Command, error)) (Debug, error) {
	cmd, err := compile()
	if err != nil {
		return Debug{}, err
	}
	return Debug{Raw: cmd, Readable: cmd.Readable()}, nil
}

// execute consumes the builder only once the command has compiled.
func (o *operation) execute(ctx context.Context, exec ItemExecutor, compile func() (Command, error)) (map[string]types.AttributeValue, error) {
	if o.consumed {
		return nil, consumedError(o.table)
	}
	if exec == nil {
		return nil, &ValidationError{Table: o.table, Message: "no executor"}
	}
	cmd, err := compile()
	if err != nil {
		return nil, err
	}
	o.consumed = true

	out, err := exec.ExecuteItem(ctx, cmd)
	if err != nil {
		return nil, &OperationError{
			Op:    strings.ToLower(cmd.Kind.String()),
			Items: []Readable{cmd.Readable()},
			Err:   err,
		}
	}
	return out, nil
}

// enlist consumes the builder only once the transaction has accepted it.
func (o *operation) enlist(tx *Transaction, compile func() (Command, error)) error {
	if o.consumed {
		return consumedError(o.table)
	}
	if tx == nil {
		return &ValidationError{Table: o.table, Message: "no transaction"}
	}
	cmd, err := compile()
	if err != nil {
		return err
	}
	if err := tx.add(cmd); err != nil {
		return err
	}
	o.consumed = true
	return nil
}

// Put writes a whole item, optionally guarded by a condition.
type Put struct {
	operation
	item any
}

// NewPut builds a put of item at key. Key attributes are added to the item
// by the executor from the table's schema.
func NewPut(table string, key Key, item any) *Put {
	return &Put{operation: operation{kind: OpPut, table: table, key: key}, item: item}
}

// If sets the condition, replacing any previous one.
func (p *Put) If(c expr.Condition) *Put {
	p.setCondition(c)
	return p
}

// AndIf adds c to the existing condition with AND.
func (p *Put) AndIf(c expr.Condition) *Put {
	p.andCondition(c)
	return p
}

// IfNotExists guards the put so it only creates new items.
func (p *Put) IfNotExists(partitionAttr string) *Put {
	p.andCondition(expr.AttributeNotExists(partitionAttr))
	return p
}

// ReturnValues requests attributes back from a stand-alone execution.
func (p *Put) ReturnValues(rv types.ReturnValue) *Put {
	p.returnValues = rv
	return p
}

// Compile returns the put as a frozen Command.
func (p *Put) Compile() (Command, error) {
	if p.item == nil {
		return Command{}, &ValidationError{Table: p.table, Message: "put requires an item"}
	}
	return p.compile(p.item, nil, false)
}

// Debug compiles the put and renders it with aliases substituted.
func (p *Put) Debug() (Debug, error) {
	return p.debug(p.Compile)
}

// Execute sends the put on its own and consumes the builder.
func (p *Put) Execute(ctx context.Context, exec ItemExecutor) (map[string]types.AttributeValue, error) {
	return p.execute(ctx, exec, p.Compile)
}

// WithTransaction enlists the put in tx and consumes the builder.
func (p *Put) WithTransaction(tx *Transaction) error {
	return p.enlist(tx, p.Compile)
}

// Update mutates attributes of an existing (or new) item.
type Update struct {
	operation
	actions []expr.UpdateAction
}

// NewUpdate builds an update of the item at key.
func NewUpdate(table string, key Key) *Update {
	return &Update{operation: operation{kind: OpUpdate, table: table, key: key}}
}

// Action appends a prebuilt update action.
func (u *Update) Action(a expr.UpdateAction) *Update {
	if a.Tag != expr.TagRemove && a.Value == nil && u.err == nil {
		u.err = &ValidationError{Table: u.table, Field: a.Path, Message: fmt.Sprintf("%s requires a value", a.Tag)}
	}
	u.actions = append(u.actions, a)
	return u
}

// Set assigns value to path.
func (u *Update) Set(path string, value any) *Update {
	return u.Action(expr.Set(path, value))
}

// SetIfNotExists assigns value to path unless path already holds one.
func (u *Update) SetIfNotExists(path string, value any) *Update {
	return u.Action(expr.SetIfNotExists(path, value))
}

// Increment adds delta to the number at path.
func (u *Update) Increment(path string, delta any) *Update {
	return u.Action(expr.Increment(path, delta))
}

// Decrement subtracts delta from the number at path.
func (u *Update) Decrement(path string, delta any) *Update {
	return u.Action(expr.Decrement(path, delta))
}

// Append concatenates list onto the end of the list at path.
func (u *Update) Append(path string, list any) *Update {
	return u.Action(expr.Append(path, list))
}

// Prepend concatenates list onto the front of the list at path.
func (u *Update) Prepend(path string, list any) *Update {
	return u.Action(expr.Prepend(path, list))
}

// Remove deletes the attribute at path.
func (u *Update) Remove(path string) *Update {
	return u.Action(expr.Remove(path))
}

// Add adds value to a number or merges it into a set at path.
func (u *Update) Add(path string, value any) *Update {
	return u.Action(expr.Add(path, value))
}

// DeleteMembers removes members from the set at path.
func (u *Update) DeleteMembers(path string, members any) *Update {
	return u.Action(expr.DeleteMembers(path, members))
}

// If sets the condition, replacing any previous one.
func (u *Update) If(c expr.Condition) *Update {
	u.setCondition(c)
	return u
}

// AndIf adds c to the existing condition with AND.
func (u *Update) AndIf(c expr.Condition) *Update {
	u.andCondition(c)
	return u
}

// ReturnValues requests attributes back from a stand-alone execution.
func (u *Update) ReturnValues(rv types.ReturnValue) *Update {
	u.returnValues = rv
	return u
}

// Compile returns the update as a frozen Command. The actions are copied.
func (u *Update) Compile() (Command, error) {
	return u.compile(nil, append([]expr.UpdateAction(nil), u.actions...), false)
}

// Debug compiles the update and renders it with aliases substituted.
func (u *Update) Debug() (Debug, error) {
	return u.debug(u.Compile)
}

// Execute sends the update on its own and consumes the builder.
func (u *Update) Execute(ctx context.Context, exec ItemExecutor) (map[string]types.AttributeValue, error) {
	return u.execute(ctx, exec, u.Compile)
}

// WithTransaction enlists the update in tx and consumes the builder.
func (u *Update) WithTransaction(tx *Transaction) error {
	return u.enlist(tx, u.Compile)
}

// Delete removes an item, optionally guarded by a condition.
type Delete struct {
	operation
}

// NewDelete builds a delete of the item at key.
func NewDelete(table string, key Key) *Delete {
	return &Delete{operation: operation{kind: OpDelete, table: table, key: key}}
}

// If sets the condition, replacing any previous one.
func (d *Delete) If(c expr.Condition) *Delete {
	d.setCondition(c)
	return d
}

// AndIf adds c to the existing condition with AND.
func (d *Delete) AndIf(c expr.Condition) *Delete {
	d.andCondition(c)
	return d
}

// ReturnValues requests attributes back from a stand-alone execution.
func (d *Delete) ReturnValues(rv types.ReturnValue) *Delete {
	d.returnValues = rv
	return d
}

// Compile returns the delete as a frozen Command.
func (d *Delete) Compile() (Command, error) {
	return d.compile(nil, nil, false)
}

// Debug compiles the delete and renders it with aliases substituted.
func (d *Delete) Debug() (Debug, error) {
	return d.debug(d.Compile)
}

// Execute sends the delete on its own and consumes the builder.
func (d *Delete) Execute(ctx context.Context, exec ItemExecutor) (map[string]types.AttributeValue, error) {
	return d.execute(ctx, exec, d.Compile)
}

// WithTransaction enlists the delete in tx and consumes the builder.
func (d *Delete) WithTransaction(tx *Transaction) error {
	return d.enlist(tx, d.Compile)
}

// ConditionCheck asserts a condition on an item without writing it.
type ConditionCheck struct {
	operation
}

// NewConditionCheck builds a check of cond against the item at key.
func NewConditionCheck(table string, key Key, cond expr.Condition) *ConditionCheck {
	return &ConditionCheck{operation: operation{kind: OpConditionCheck, table: table, key: key, cond: cond}}
}

// AndIf adds cond to the check with AND.
func (c *ConditionCheck) AndIf(cond expr.Condition) *ConditionCheck {
	c.andCondition(cond)
	return c
}

// Compile returns the check as a frozen Command. A check without a condition is rejected.
func (c *ConditionCheck) Compile() (Command, error) {
	return c.compile(nil, nil, true)
}

// Debug compiles the check and renders it with aliases substituted.
func (c *ConditionCheck) Debug() (Debug, error) {
	return c.debug(c.Compile)
}

// Execute sends the check on its own; DynamoDB has no stand-alone check call,
// so executors run it as a one-item transaction.
func (c *ConditionCheck) Execute(ctx context.Context, exec ItemExecutor) (map[string]types.AttributeValue, error) {
	return c.execute(ctx, exec, c.Compile)
}

// WithTransaction enlists the check in tx and consumes the builder.
func (c *ConditionCheck) WithTransaction(tx *Transaction) error {
	return c.enlist(tx, c.Compile)
}
