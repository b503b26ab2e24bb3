package expr

// Condition is a node in a predicate tree.
//
// This is a sealed interface: only types in this package implement it, so the
// compiler can switch over every node kind. Nodes are immutable once built.
type Condition interface {
	conditionNode()
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq  CompareOp = "="
	OpNe  CompareOp = "<>"
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
)

// FuncName is a condition function understood by the store.
type FuncName string

const (
	FuncBeginsWith         FuncName = "begins_with"
	FuncContains           FuncName = "contains"
	FuncAttributeExists    FuncName = "attribute_exists"
	FuncAttributeNotExists FuncName = "attribute_not_exists"
	FuncAttributeType      FuncName = "attribute_type"
)

// LogicalOp joins child conditions.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// MaxInValues is the protocol limit on IN operands.
const MaxInValues = 100

// Comparison is `path <op> value`.
type Comparison struct {
	Op    CompareOp
	Path  string
	Value any
}

func (Comparison) conditionNode() {}

// Between is `path BETWEEN lower AND upper`. Bounds must hold exactly two values.
type Between struct {
	Path   string
	Bounds []any
}

func (Between) conditionNode() {}

// Function is a function-call condition. Value is nil for the existence checks.
type Function struct {
	Name  FuncName
	Path  string
	Value any
}

func (Function) conditionNode() {}

// In is `path IN (v0, v1, ...)`.
type In struct {
	Path   string
	Values []any
}

func (In) conditionNode() {}

// Logical is an AND/OR over one or more children.
type Logical struct {
	Op       LogicalOp
	Children []Condition
}

func (Logical) conditionNode() {}

// Not negates its child.
type Not struct {
	Child Condition
}

func (Not) conditionNode() {}

// Eq matches when the value at path equals value.
func Eq(path string, value any) Condition {
	return Comparison{Op: OpEq, Path: path, Value: value}
}

// Ne matches when the value at path differs from value.
func Ne(path string, value any) Condition {
	return Comparison{Op: OpNe, Path: path, Value: value}
}

// Lt matches when the value at path is less than value.
func Lt(path string, value any) Condition {
	return Comparison{Op: OpLt, Path: path, Value: value}
}

// Lte matches when the value at path is at most value.
func Lte(path string, value any) Condition {
	return Comparison{Op: OpLte, Path: path, Value: value}
}

// Gt matches when the value at path is greater than value.
func Gt(path string, value any) Condition {
	return Comparison{Op: OpGt, Path: path, Value: value}
}

// Gte matches when the value at path is at least value.
func Gte(path string, value any) Condition {
	return Comparison{Op: OpGte, Path: path, Value: value}
}

// BetweenValues builds a Between node with the given inclusive bounds.
func BetweenValues(path string, lower, upper any) Condition {
	return Between{Path: path, Bounds: []any{lower, upper}}
}

// BeginsWith matches string or binary values at path that start with prefix.
func BeginsWith(path string, prefix any) Condition {
	return Function{Name: FuncBeginsWith, Path: path, Value: prefix}
}

// Contains matches a string containing operand, or a set or list holding it.
func Contains(path string, operand any) Condition {
	return Function{Name: FuncContains, Path: path, Value: operand}
}

// AttributeExists matches items where path is present.
func AttributeExists(path string) Condition {
	return Function{Name: FuncAttributeExists, Path: path}
}

// AttributeNotExists matches items where path is absent.
func AttributeNotExists(path string) Condition {
	return Function{Name: FuncAttributeNotExists, Path: path}
}

// AttributeType checks the stored type of path, e.g. AttributeType("tags", "SS").
func AttributeType(path string, typ string) Condition {
	return Function{Name: FuncAttributeType, Path: path, Value: typ}
}

// InValues builds an In node. The slice is copied.
func InValues(path string, values ...any) Condition {
	return In{Path: path, Values: append([]any(nil), values...)}
}

// And joins children with AND. The slice is copied.
func And(children ...Condition) Condition {
	return Logical{Op: OpAnd, Children: append([]Condition(nil), children...)}
}

// Or joins children with OR. The slice is copied.
func Or(children ...Condition) Condition {
	return Logical{Op: OpOr, Children: append([]Condition(nil), children...)}
}

// Negate wraps child in NOT.
func Negate(child Condition) Condition {
	return Not{Child: child}
}
