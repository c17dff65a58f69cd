// Package env implements the lexically scoped environment chains of
// spec.md §2/§3: each frame maps an identifier to a bound entry (value,
// alias expression, pattern variable, multi-static, or module reference),
// plus a pair of scope flags (call-by-name head location, exception
// availability) consulted by the analyzer and lowering driver.
package env

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/types"
)

// EntryKind discriminates what an Entry's payload holds.
type EntryKind int

const (
	// EntryValue binds a name to an analyzed value (a values.PValue or
	// values.CValue held by value, stored as Any to avoid an import cycle
	// with internal/values, which itself imports internal/types only).
	EntryValue EntryKind = iota
	// EntryAlias binds a name to an expression re-analyzed on every use in
	// its captured environment (spec.md §3 "Name references").
	EntryAlias
	// EntryPatternVar binds a record/variant pattern variable to a resolved
	// types.StaticObject.
	EntryPatternVar
	// EntryMultiStatic binds a name to an ordered list of StaticObjects,
	// e.g. a var-pattern capturing a trailing run of statics.
	EntryMultiStatic
	// EntryModule binds a name to an imported module reference.
	EntryModule
	// EntryCallable binds a name to a (possibly overloaded) procedure.
	EntryCallable
	// EntryType binds a name directly to an interned type.
	EntryType
	// EntryPrimOp binds a name to a fixed primitive operation code (spec.md
	// §4.5): dispatched directly by internal/primops, never through overload
	// ranking. Stored as a plain int (rather than primops.PrimOpCode) so
	// this package doesn't need to import internal/primops.
	EntryPrimOp
)

// Entry is one binding installed in a frame.
type Entry struct {
	Kind         EntryKind
	Value        any // payload, typed per Kind; see EntryKind doc comments
	AliasExpr    hir.Expr
	AliasEnv     *Env // capture env the alias re-evaluates against
	PatternVar   types.StaticObject
	MultiStatic  []types.StaticObject
	Module       *hir.Module
	Callable     *hir.Callable
	Type         *types.Type
	PrimOp       int
}

// Env is one frame in a lexically scoped chain. The zero value is not
// usable; construct with New or NewEnclosed.
type Env struct {
	store map[string]Entry
	outer *Env

	// callByNameHead, when non-empty, is the source position of the call
	// site whose call-by-name overload body is being analyzed in this
	// frame — consulted to detect and bound call-by-name recursion
	// (spec.md §5, 100-deep bound; see internal/specialize).
	callByNameHead hir.Position
	hasCBNHead     bool

	// exceptionAvailable marks a scope in which a `throw` target exists
	// (a surrounding try/catch or the function's implicit exception
	// block), consulted by the lowering driver's sentinel-pointer
	// protocol (spec.md §6).
	exceptionAvailable bool
}

// New creates a root environment with no outer scope, e.g. a module's
// top-level environment.
func New() *Env {
	return &Env{store: make(map[string]Entry)}
}

// NewEnclosed creates a new environment nested inside outer. Scope flags
// (exceptionAvailable, callByNameHead) are not inherited automatically;
// callers that want them carried forward use WithException /
// WithCallByNameHead on the returned frame.
func NewEnclosed(outer *Env) *Env {
	return &Env{store: make(map[string]Entry), outer: outer}
}

// WithException returns e with its exceptionAvailable flag set, for
// chaining at construction (e.g. NewEnclosed(outer).WithException()).
func (e *Env) WithException() *Env {
	e.exceptionAvailable = true
	return e
}

// ExceptionAvailable reports whether a throw target is reachable from this
// scope, searching outward through enclosing frames.
func (e *Env) ExceptionAvailable() bool {
	for f := e; f != nil; f = f.outer {
		if f.exceptionAvailable {
			return true
		}
	}
	return false
}

// WithCallByNameHead records pos as this frame's call-by-name head
// location, for chaining at construction.
func (e *Env) WithCallByNameHead(pos hir.Position) *Env {
	e.callByNameHead = pos
	e.hasCBNHead = true
	return e
}

// CallByNameHead returns the nearest enclosing call-by-name head location,
// if any.
func (e *Env) CallByNameHead() (hir.Position, bool) {
	for f := e; f != nil; f = f.outer {
		if f.hasCBNHead {
			return f.callByNameHead, true
		}
	}
	return hir.Position{}, false
}

// Define installs entry under name in the current frame, shadowing any
// binding of the same name in an outer frame. Redefining a name already
// present in the current frame overwrites it (declarations, unlike
// assignments, never error on shadowing).
func (e *Env) Define(name string, entry Entry) {
	e.store[name] = entry
}

// Lookup searches the current frame, then each outer frame in turn, and
// returns the first match.
func (e *Env) Lookup(name string) (Entry, bool) {
	for f := e; f != nil; f = f.outer {
		if ent, ok := f.store[name]; ok {
			return ent, true
		}
	}
	return Entry{}, false
}

// LookupLocal searches only the current frame, without consulting outer
// scopes — used to detect shadowing and to implement `var`'s no-outer-
// mutation semantics.
func (e *Env) LookupLocal(name string) (Entry, bool) {
	ent, ok := e.store[name]
	return ent, ok
}

// Outer returns the enclosing frame, or nil at the root.
func (e *Env) Outer() *Env {
	return e.outer
}

// NotFoundError reports a failed Lookup for a required name.
type NotFoundError struct {
	Name string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("undefined identifier: %s", err.Name)
}

// Require looks up name and returns NotFoundError if absent, sparing
// callers (the analyzer, mostly) the Lookup-then-branch boilerplate.
func (e *Env) Require(name string) (Entry, error) {
	ent, ok := e.Lookup(name)
	if !ok {
		return Entry{}, &NotFoundError{Name: name}
	}
	return ent, nil
}
