// Package expr compiles structured conditions and update actions into
// DynamoDB expression strings.
//
// Conditions are immutable trees built from combinators:
//
//	cond := expr.And(
//	    expr.Eq("status", "ACTIVE"),
//	    expr.InValues("priority", 1, 2, 3),
//	)
//	compiled, err := expr.CompileCondition(cond)
//	// compiled.Expression == "(#0 = :0 AND #1 IN (:1, :2, :3))"
//
// # Placeholders
//
// Attribute names are replaced by "#n" aliases and literals by ":n" aliases,
// both allocated from a [Params]. Name aliases are deduplicated: every
// occurrence of an attribute, and every shared segment of a nested path such
// as "a.b.c", reuses one alias. Value aliases are never deduplicated, even
// for equal literals.
//
// Fragments compiled against the same Params (an update expression and its
// condition, for example) share one numbering.
//
// # Errors
//
// Every failure is an [*Error] matching [ErrExpression]; use [IsKind] to
// distinguish kinds such as [KindEmptyArray] or [KindMaxExceeded].
package expr
