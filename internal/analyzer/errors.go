package analyzer

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/hir"
)

// ArityError reports a positional-count mismatch (call argument count,
// multi-assignment arity, implicit-unpack arity).
type ArityError struct {
	At       hir.Position
	Want, Got int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: arity mismatch: want %d, got %d", e.At, e.Want, e.Got)
}

// TypeMismatchError reports an analyzed type that does not satisfy its
// context's requirement (assignment, operator operand, return type).
type TypeMismatchError struct {
	At       hir.Position
	Want, Got string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: type mismatch: want %s, got %s", e.At, e.Want, e.Got)
}

// NotACallableError reports a call-expression head that resolved to
// something other than a type/record/variant/procedure/alias/primitive.
type NotACallableError struct {
	At   hir.Position
	Name string
}

func (e *NotACallableError) Error() string {
	return fmt.Sprintf("%s: %q is not callable", e.At, e.Name)
}

// AmbiguousOverloadError reports two or more overloads tying at the same
// specificity with satisfied predicates and no textual order to break the
// tie (should not happen given head-first insertion, but is checked).
type AmbiguousOverloadError struct {
	At   hir.Position
	Name string
}

func (e *AmbiguousOverloadError) Error() string {
	return fmt.Sprintf("%s: ambiguous overload for %q", e.At, e.Name)
}

// NoMatchingOverloadError reports a call whose argument key matched no
// declared overload's pattern/predicate.
type NoMatchingOverloadError struct {
	At   hir.Position
	Name string
}

func (e *NoMatchingOverloadError) Error() string {
	return fmt.Sprintf("%s: no matching overload for %q", e.At, e.Name)
}

// InvalidStaticObjectError reports a static-context expression (type
// position, pattern argument, static-for sequence) that did not evaluate
// to a valid StaticObject.
type InvalidStaticObjectError struct {
	At     hir.Position
	Detail string
}

func (e *InvalidStaticObjectError) Error() string {
	return fmt.Sprintf("%s: invalid static object: %s", e.At, e.Detail)
}

// RecursionNotResolvedError reports a self-recursive call whose return
// type fixed point never stabilized (no declared return type to fall back
// to, and the guessed type kept changing).
type RecursionNotResolvedError struct {
	At   hir.Position
	Name string
}

func (e *RecursionNotResolvedError) Error() string {
	return fmt.Sprintf("%s: could not resolve recursive return type of %q", e.At, e.Name)
}
