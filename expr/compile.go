package expr

import (
	"strings"
)

// RefKind tells whether a Ref points at a name alias or a value alias.
type RefKind int

const (
	RefName RefKind = iota + 1
	RefValue
)

// Ref records where an alias was written in a compiled expression and what it
// stands for.
type Ref struct {
	Start int
	End   int
	Kind  RefKind
	Alias string
	Name  string
	Value any
}

// Fragment is one compiled expression together with the span of every alias
// it contains.
type Fragment struct {
	Expression string
	refs       []Ref
}

// Refs returns a copy of the alias spans, in expression order.
func (f Fragment) Refs() []Ref {
	return append([]Ref(nil), f.refs...)
}

// IsZero reports whether the fragment holds no expression.
func (f Fragment) IsZero() bool {
	return f.Expression == ""
}

// Readable returns the expression with every alias replaced by the attribute
// name or rendered literal it stands for.
func (f Fragment) Readable() string {
	if len(f.refs) == 0 {
		return f.Expression
	}
	var b strings.Builder
	last := 0
	for _, r := range f.refs {
		b.WriteString(f.Expression[last:r.Start])
		if r.Kind == RefName {
			b.WriteString(r.Name)
		} else {
			b.WriteString(RenderValue(r.Value))
		}
		last = r.End
	}
	b.WriteString(f.Expression[last:])
	return b.String()
}

// Compiled is a stand-alone compiled condition with its placeholder maps.
type Compiled struct {
	Fragment
	Names  map[string]string
	Values map[string]any
}

// CompileCondition compiles c with a fresh allocator.
func CompileCondition(c Condition) (Compiled, error) {
	p := NewParams()
	f, err := Compile(c, p)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{Fragment: f, Names: p.Names(), Values: p.Values()}, nil
}

// Compile compiles c into a Fragment, allocating aliases from p. Fragments
// compiled against the same Params share alias numbering.
func Compile(c Condition, p *Params) (Fragment, error) {
	w := newWriter(p)
	if err := w.condition(c); err != nil {
		return Fragment{}, err
	}
	return w.fragment(), nil
}

// writer accumulates expression text and alias spans.
type writer struct {
	buf    strings.Builder
	refs   []Ref
	params *Params
}

func newWriter(p *Params) *writer {
	if p == nil {
		p = NewParams()
	}
	return &writer{params: p}
}

func (w *writer) fragment() Fragment {
	return Fragment{Expression: w.buf.String(), refs: w.refs}
}

func (w *writer) str(s string) {
	w.buf.WriteString(s)
}

func (w *writer) name(real string) {
	alias := w.params.Name(real)
	start := w.buf.Len()
	w.buf.WriteString(alias)
	w.refs = append(w.refs, Ref{Start: start, End: w.buf.Len(), Kind: RefName, Alias: alias, Name: real})
}

// value validates v and writes a fresh value alias for it.
func (w *writer) value(path string, v any) error {
	if v == nil {
		return newError(KindValueMissing, path, "value is required")
	}
	if _, err := MarshalValue(v); err != nil {
		if e, ok := err.(*Error); ok {
			return &Error{Kind: e.Kind, Path: path, Message: e.Message}
		}
		return err
	}
	alias := w.params.Value(v)
	start := w.buf.Len()
	w.buf.WriteString(alias)
	w.refs = append(w.refs, Ref{Start: start, End: w.buf.Len(), Kind: RefValue, Alias: alias, Value: v})
	return nil
}

// path writes a document path, one name alias per segment.
func (w *writer) path(path string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	for i, s := range segs {
		if i > 0 {
			w.str(".")
		}
		w.name(s.name)
		w.str(s.index)
	}
	return nil
}

func (w *writer) condition(c Condition) error {
	switch n := c.(type) {
	case Comparison:
		return w.comparison(n)
	case *Comparison:
		if n == nil {
			break
		}
		return w.comparison(*n)
	case Between:
		return w.between(n)
	case *Between:
		if n == nil {
			break
		}
		return w.between(*n)
	case Function:
		return w.function(n)
	case *Function:
		if n == nil {
			break
		}
		return w.function(*n)
	case In:
		return w.in(n)
	case *In:
		if n == nil {
			break
		}
		return w.in(*n)
	case Logical:
		return w.logical(n)
	case *Logical:
		if n == nil {
			break
		}
		return w.logical(*n)
	case Not:
		return w.not(n)
	case *Not:
		if n == nil {
			break
		}
		return w.not(*n)
	}
	return newError(KindUnknownCondition, "", "unsupported condition %T", c)
}

func (w *writer) comparison(n Comparison) error {
	switch n.Op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
	default:
		return newError(KindUnknownCondition, n.Path, "unsupported comparison operator %q", n.Op)
	}
	if n.Path == "" {
		return newError(KindAttributeMissing, "", "comparison %s requires an attribute", n.Op)
	}
	if n.Value == nil {
		return newError(KindValueMissing, n.Path, "comparison %s requires a value", n.Op)
	}
	if err := w.path(n.Path); err != nil {
		return err
	}
	w.str(" " + string(n.Op) + " ")
	return w.value(n.Path, n.Value)
}

func (w *writer) between(n Between) error {
	if n.Path == "" {
		return newError(KindAttributeMissing, "", "between requires an attribute")
	}
	if len(n.Bounds) != 2 || n.Bounds[0] == nil || n.Bounds[1] == nil {
		return newError(KindMalformedBetween, n.Path, "between requires [lower, upper], got %d bounds", len(n.Bounds))
	}
	if err := w.path(n.Path); err != nil {
		return err
	}
	w.str(" BETWEEN ")
	if err := w.value(n.Path, n.Bounds[0]); err != nil {
		return err
	}
	w.str(" AND ")
	return w.value(n.Path, n.Bounds[1])
}

var attributeTypes = map[string]bool{
	"S": true, "SS": true, "N": true, "NS": true, "B": true,
	"BS": true, "BOOL": true, "NULL": true, "L": true, "M": true,
}

func (w *writer) function(n Function) error {
	if n.Path == "" {
		return newError(KindAttributeMissing, "", "%s requires an attribute", n.Name)
	}
	switch n.Name {
	case FuncAttributeExists, FuncAttributeNotExists:
		if n.Value != nil {
			return newError(KindForbiddenValue, n.Path, "%s does not take a value", n.Name)
		}
		w.str(string(n.Name) + "(")
		if err := w.path(n.Path); err != nil {
			return err
		}
		w.str(")")
		return nil
	case FuncAttributeType:
		if n.Value == nil {
			return newError(KindValueMissing, n.Path, "%s requires a type", n.Name)
		}
		if s, ok := n.Value.(string); !ok || !attributeTypes[s] {
			return newError(KindInvalidValue, n.Path, "%v is not an attribute type", n.Value)
		}
	case FuncBeginsWith, FuncContains:
		if n.Value == nil {
			return newError(KindValueMissing, n.Path, "%s requires a value", n.Name)
		}
	default:
		return newError(KindUnknownCondition, n.Path, "unsupported function %q", n.Name)
	}
	w.str(string(n.Name) + "(")
	if err := w.path(n.Path); err != nil {
		return err
	}
	w.str(", ")
	if err := w.value(n.Path, n.Value); err != nil {
		return err
	}
	w.str(")")
	return nil
}

func (w *writer) in(n In) error {
	if n.Path == "" {
		return newError(KindAttributeMissing, "", "IN requires an attribute")
	}
	if len(n.Values) == 0 {
		return newError(KindEmptyArray, n.Path, "IN requires at least one value")
	}
	if len(n.Values) > MaxInValues {
		return newError(KindMaxExceeded, n.Path, "IN accepts at most %d values, got %d", MaxInValues, len(n.Values))
	}
	if err := w.path(n.Path); err != nil {
		return err
	}
	w.str(" IN (")
	for i, v := range n.Values {
		if i > 0 {
			w.str(", ")
		}
		if err := w.value(n.Path, v); err != nil {
			return err
		}
	}
	w.str(")")
	return nil
}

func (w *writer) logical(n Logical) error {
	if n.Op != OpAnd && n.Op != OpOr {
		return newError(KindUnknownCondition, "", "unsupported logical operator %q", n.Op)
	}
	if len(n.Children) == 0 {
		return newError(KindEmptyLogical, "", "%s requires at least one condition", n.Op)
	}
	w.str("(")
	for i, child := range n.Children {
		if i > 0 {
			w.str(" " + string(n.Op) + " ")
		}
		if err := w.condition(child); err != nil {
			return err
		}
	}
	w.str(")")
	return nil
}

func (w *writer) not(n Not) error {
	w.str("NOT (")
	if err := w.condition(n.Child); err != nil {
		return err
	}
	w.str(")")
	return nil
}
