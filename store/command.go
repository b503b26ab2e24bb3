package store

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lattice/expr"
)

// OpKind tags a compiled command or transaction item.
type OpKind int

const (
	OpPut OpKind = iota + 1
	OpUpdate
	OpDelete
	OpConditionCheck
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "Put"
	case OpUpdate:
		return "Update"
	case OpDelete:
		return "Delete"
	case OpConditionCheck:
		return "ConditionCheck"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Command is a frozen, compiled single-item command. Every call to a
// builder's Compile returns a new Command with its own maps.
type Command struct {
	Kind  OpKind
	Table string
	Key   Key

	// Item is the item body for puts.
	Item any

	Condition expr.Fragment
	Update    expr.Fragment

	Names  map[string]string
	Values map[string]any

	ReturnValues types.ReturnValue
}

// ConditionExpression returns the compiled condition, or "" when there is none.
func (c Command) ConditionExpression() string {
	return c.Condition.Expression
}

// UpdateExpression returns the compiled update, or "" for non-updates.
func (c Command) UpdateExpression() string {
	return c.Update.Expression
}

// Readable renders the command with every alias substituted.
func (c Command) Readable() Readable {
	r := Readable{
		Kind:                c.Kind,
		Table:               c.Table,
		Key:                 c.Key.String(),
		ConditionExpression: c.Condition.Readable(),
		UpdateExpression:    c.Update.Readable(),
	}
	if c.Item != nil {
		r.Item = expr.RenderValue(c.Item)
	}
	return r
}

// Readable is the human-readable view of a Command.
type Readable struct {
	Kind                OpKind
	Table               string
	Key                 string
	Item                string
	ConditionExpression string
	UpdateExpression    string
}

func (r Readable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", r.Kind, r.Table, r.Key)
	if r.UpdateExpression != "" {
		fmt.Fprintf(&b, " update: %s", r.UpdateExpression)
	}
	if r.ConditionExpression != "" {
		fmt.Fprintf(&b, " condition: %s", r.ConditionExpression)
	}
	if r.Item != "" {
		fmt.Fprintf(&b, " item: %s", r.Item)
	}
	return b.String()
}

// Debug pairs a compiled command with its readable rendering.
type Debug struct {
	Raw      Command
	Readable Readable
}
