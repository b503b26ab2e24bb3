package expr

// ActionTag is an update clause keyword.
type ActionTag string

const (
	TagSet    ActionTag = "SET"
	TagRemove ActionTag = "REMOVE"
	TagAdd    ActionTag = "ADD"
	TagDelete ActionTag = "DELETE"
)

// clauseOrder is the fixed order clauses appear in a compiled update.
var clauseOrder = []ActionTag{TagSet, TagRemove, TagAdd, TagDelete}

type setForm int

const (
	setAssign setForm = iota
	setIfNotExists
	setIncrement
	setDecrement
	setAppend
	setPrepend
)

// UpdateAction is one mutation of an item attribute.
type UpdateAction struct {
	Tag   ActionTag
	Path  string
	Value any
	form  setForm
}

// Set assigns value to path.
func Set(path string, value any) UpdateAction {
	return UpdateAction{Tag: TagSet, Path: path, Value: value}
}

// SetIfNotExists assigns value only when path is absent.
func SetIfNotExists(path string, value any) UpdateAction {
	return UpdateAction{Tag: TagSet, Path: path, Value: value, form: setIfNotExists}
}

// Increment adds delta to a numeric attribute that must already exist.
func Increment(path string, delta any) UpdateAction {
	return UpdateAction{Tag: TagSet, Path: path, Value: delta, form: setIncrement}
}

// Decrement subtracts delta from a numeric attribute that must already exist.
func Decrement(path string, delta any) UpdateAction {
	return UpdateAction{Tag: TagSet, Path: path, Value: delta, form: setDecrement}
}

// Append appends list elements to a list attribute.
func Append(path string, list any) UpdateAction {
	return UpdateAction{Tag: TagSet, Path: path, Value: list, form: setAppend}
}

// Prepend prepends list elements to a list attribute.
func Prepend(path string, list any) UpdateAction {
	return UpdateAction{Tag: TagSet, Path: path, Value: list, form: setPrepend}
}

// Remove deletes the attribute at path.
func Remove(path string) UpdateAction {
	return UpdateAction{Tag: TagRemove, Path: path}
}

// Add adds a number to a numeric attribute or members to a set.
func Add(path string, value any) UpdateAction {
	return UpdateAction{Tag: TagAdd, Path: path, Value: value}
}

// DeleteMembers removes set members from a set attribute.
func DeleteMembers(path string, members any) UpdateAction {
	return UpdateAction{Tag: TagDelete, Path: path, Value: members}
}

// CompileUpdate compiles actions into an update expression using p. Clauses
// are emitted as SET, REMOVE, ADD, DELETE; actions keep their relative order
// within a clause.
func CompileUpdate(actions []UpdateAction, p *Params) (Fragment, error) {
	if len(actions) == 0 {
		return Fragment{}, newError(KindNoActions, "", "update requires at least one action")
	}
	for _, a := range actions {
		switch a.Tag {
		case TagSet, TagRemove, TagAdd, TagDelete:
		default:
			return Fragment{}, newError(KindUnknownCondition, a.Path, "unsupported update action %q", a.Tag)
		}
	}
	w := newWriter(p)
	clauses := 0
	for _, tag := range clauseOrder {
		n := 0
		for _, a := range actions {
			if a.Tag != tag {
				continue
			}
			if n == 0 {
				if clauses > 0 {
					w.str(" ")
				}
				w.str(string(tag) + " ")
				clauses++
			} else {
				w.str(", ")
			}
			if err := w.action(a); err != nil {
				return Fragment{}, err
			}
			n++
		}
	}
	return w.fragment(), nil
}

func (w *writer) action(a UpdateAction) error {
	if a.Path == "" {
		return newError(KindAttributeMissing, "", "%s requires an attribute", a.Tag)
	}
	if a.Tag == TagRemove {
		if a.Value != nil {
			return newError(KindForbiddenValue, a.Path, "REMOVE does not take a value")
		}
		return w.path(a.Path)
	}
	if a.Value == nil {
		return newError(KindValueMissing, a.Path, "%s requires a value", a.Tag)
	}
	if err := w.path(a.Path); err != nil {
		return err
	}
	if a.Tag == TagAdd || a.Tag == TagDelete {
		w.str(" ")
		return w.value(a.Path, a.Value)
	}

	w.str(" = ")
	switch a.form {
	case setIfNotExists:
		w.str("if_not_exists(")
		if err := w.path(a.Path); err != nil {
			return err
		}
		w.str(", ")
		if err := w.value(a.Path, a.Value); err != nil {
			return err
		}
		w.str(")")
	case setIncrement, setDecrement:
		if err := w.path(a.Path); err != nil {
			return err
		}
		if a.form == setIncrement {
			w.str(" + ")
		} else {
			w.str(" - ")
		}
		return w.value(a.Path, a.Value)
	case setAppend, setPrepend:
		w.str("list_append(")
		if a.form == setAppend {
			if err := w.path(a.Path); err != nil {
				return err
			}
			w.str(", ")
			if err := w.value(a.Path, a.Value); err != nil {
				return err
			}
		} else {
			if err := w.value(a.Path, a.Value); err != nil {
				return err
			}
			w.str(", ")
			if err := w.path(a.Path); err != nil {
				return err
			}
		}
		w.str(")")
	default:
		return w.value(a.Path, a.Value)
	}
	return nil
}
