package expr

import (
	"errors"
	"fmt"
)

// ErrExpression is matched by every compilation error via errors.Is.
var ErrExpression = errors.New("lattice: invalid expression")

// ErrorKind identifies why a condition or update failed to compile.
type ErrorKind int

const (
	// KindAttributeMissing means a node had an empty attribute path.
	KindAttributeMissing ErrorKind = iota + 1

	// KindValueMissing means a node required a value but had nil.
	KindValueMissing

	// KindEmptyArray means an IN list had no elements.
	KindEmptyArray

	// KindMaxExceeded means an IN list had more than MaxInValues elements.
	KindMaxExceeded

	// KindMalformedBetween means BETWEEN bounds were not exactly [lower, upper].
	KindMalformedBetween

	// KindUnknownCondition means the node type is not recognised (or nil).
	KindUnknownCondition

	// KindEmptyLogical means AND/OR had no children.
	KindEmptyLogical

	// KindForbiddenValue means a value was supplied to a function that takes none.
	KindForbiddenValue

	// KindInvalidPath means a document path segment could not be parsed.
	KindInvalidPath

	// KindInvalidValue means a value was present but unusable (e.g. an empty set).
	KindInvalidValue

	// KindNoActions means an update had nothing to compile.
	KindNoActions
)

var kindNames = map[ErrorKind]string{
	KindAttributeMissing: "attribute missing",
	KindValueMissing:     "value missing",
	KindEmptyArray:       "empty array",
	KindMaxExceeded:      "max exceeded",
	KindMalformedBetween: "malformed between",
	KindUnknownCondition: "unknown condition",
	KindEmptyLogical:     "empty logical",
	KindForbiddenValue:   "forbidden value",
	KindInvalidPath:      "invalid path",
	KindInvalidValue:     "invalid value",
	KindNoActions:        "no actions",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned for every compilation failure.
type Error struct {
	Kind    ErrorKind
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("lattice: %s at %q: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("lattice: %s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	if target == ErrExpression {
		return true
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func newError(kind ErrorKind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an expression error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
