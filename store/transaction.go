package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacentio/lattice/internal/token"
)

// TxState is the lifecycle state of a Transaction.
type TxState int

const (
	TxEmpty TxState = iota
	TxAccumulating
	TxCompiling
	TxSubmitted
	TxCommitted
	TxAborted
)

func (s TxState) String() string {
	switch s {
	case TxEmpty:
		return "empty"
	case TxAccumulating:
		return "accumulating"
	case TxCompiling:
		return "compiling"
	case TxSubmitted:
		return "submitted"
	case TxCommitted:
		return "committed"
	case TxAborted:
		return "aborted"
	}
	return fmt.Sprintf("TxState(%d)", int(s))
}

// Transaction accumulates compiled commands and dispatches them atomically.
// A Transaction is not safe for concurrent use and executes at most once.
type Transaction struct {
	exec   TransactionExecutor
	logger *slog.Logger
	max    int

	items []Command
	ids   []identity
	state TxState

	token       string
	deriveToken bool
}

// NewTransaction creates an empty transaction dispatched through exec.
func NewTransaction(exec TransactionExecutor, cfg Config) *Transaction {
	cfg.validate()
	return &Transaction{
		exec:   exec,
		logger: cfg.Logger,
		max:    cfg.MaxTransactionItems,
	}
}

// Add enlists each operation in order, stopping at the first error.
func (t *Transaction) Add(ops ...Operation) error {
	for _, op := range ops {
		if err := op.WithTransaction(t); err != nil {
			return err
		}
	}
	return nil
}

// add appends cmd after checking it against every enlisted item. A rejected
// command leaves the transaction untouched.
func (t *Transaction) add(cmd Command) error {
	if t.state >= TxCompiling {
		return &TransactionError{Reason: ReasonAlreadyExecuted}
	}

	id := identityOf(cmd.Table, cmd.Key)
	for _, existing := range t.ids {
		if existing == id {
			return &TransactionError{Reason: ReasonDuplicateItem, Table: cmd.Table, Key: cmd.Key.String()}
		}
	}
	if len(t.items) >= t.max {
		return &TransactionError{Reason: ReasonTooManyItems, Count: len(t.items) + 1, Limit: t.max}
	}

	t.items = append(t.items, cmd)
	t.ids = append(t.ids, id)
	t.state = TxAccumulating
	return nil
}

// Contains reports whether an item targeting (table, key) is enlisted.
func (t *Transaction) Contains(table string, key Key) bool {
	id := identityOf(table, key)
	for _, existing := range t.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// WithIdempotencyToken sets the client request token sent with the
// transaction. An empty token clears it.
func (t *Transaction) WithIdempotencyToken(tok string) error {
	if t.state >= TxCompiling {
		return &TransactionError{Reason: ReasonAlreadyExecuted}
	}
	if len(tok) > MaxIdempotencyTokenLength {
		return &ValidationError{
			Field:   "ClientRequestToken",
			Message: fmt.Sprintf("token is %d characters, limit is %d", len(tok), MaxIdempotencyTokenLength),
		}
	}
	t.token = tok
	t.deriveToken = false
	return nil
}

// WithRandomIdempotencyToken sets a fresh random client request token.
func (t *Transaction) WithRandomIdempotencyToken() error {
	return t.WithIdempotencyToken(token.Random())
}

// WithDerivedIdempotencyToken derives the client request token from the
// readable form of every item at dispatch time, so resubmitting identical
// content is treated by the store as a replay.
func (t *Transaction) WithDerivedIdempotencyToken() error {
	if t.state >= TxCompiling {
		return &TransactionError{Reason: ReasonAlreadyExecuted}
	}
	t.token = ""
	t.deriveToken = true
	return nil
}

// Len returns the number of enlisted items.
func (t *Transaction) Len() int {
	return len(t.items)
}

// State returns the current lifecycle state.
func (t *Transaction) State() TxState {
	return t.state
}

// Items returns the enlisted commands in insertion order.
func (t *Transaction) Items() []Command {
	return append([]Command(nil), t.items...)
}

// Debug returns the readable form of every enlisted item.
func (t *Transaction) Debug() []Readable {
	out := make([]Readable, len(t.items))
	for i, cmd := range t.items {
		out[i] = cmd.Readable()
	}
	return out
}

// Payload builds the wire payload without dispatching it.
func (t *Transaction) Payload() Payload {
	p := Payload{
		Items:              make([]WireItem, len(t.items)),
		ClientRequestToken: t.token,
	}
	for i, cmd := range t.items {
		p.Items[i] = wireItem(cmd)
	}
	if t.deriveToken {
		parts := make([]string, 0, len(t.items))
		for _, r := range t.Debug() {
			parts = append(parts, r.String())
		}
		p.ClientRequestToken = token.Derive(parts...)
	}
	return p
}

// Execute dispatches every item as one all-or-nothing transaction.
//
// If ctx is cancelled during dispatch the outcome is unknown and the
// transaction stays in TxSubmitted.
func (t *Transaction) Execute(ctx context.Context) error {
	if t.state >= TxCompiling {
		return &TransactionError{Reason: ReasonAlreadyExecuted}
	}
	n := len(t.items)
	if n == 0 {
		return &TransactionError{Reason: ReasonEmpty}
	}
	if n > t.max {
		return &TransactionError{Reason: ReasonTooManyItems, Count: n, Limit: t.max}
	}
	if t.exec == nil {
		return &ValidationError{Message: "transaction has no executor"}
	}

	t.state = TxCompiling
	payload := t.Payload()

	t.state = TxSubmitted
	if err := t.exec.ExecuteTransaction(ctx, payload); err != nil {
		if ctx.Err() == nil {
			t.state = TxAborted
		}
		t.logger.WarnContext(ctx, "transaction failed",
			"items", n,
			"state", t.state.String(),
			"error", err,
		)
		return &OperationError{Op: "transaction", Items: t.Debug(), Err: err}
	}

	t.state = TxCommitted
	t.logger.DebugContext(ctx, "transaction committed", "items", n)
	return nil
}
