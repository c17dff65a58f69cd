package hir

import "github.com/clay-lang/claycore/internal/types"

// InlineMode mirrors the spec's is_inline field on InvokeEntry.
type InlineMode int

const (
	InlineDefault InlineMode = iota
	InlineAlways
	InlineForce
	InlineNever
)

// Overload is one declared overload of a callable name. Overloads are
// inserted head-first by the source program, so later textual
// declarations shadow earlier ones on a tie (§4.3).
type Overload struct {
	At           Position
	Pattern      []Param // pattern variables + fixed/var-param formals
	VarArgName   string  // "" if this overload has no trailing variadic param
	Predicate    Expr    // nil means "always matches"
	ReturnByName bool    // call-by-name overload: body analyzed per call site
	Inline       InlineMode
	Body         []Stmt
	Env          *EnvRef // captured declaration environment; see internal/env

	// ExternalName is the symbol this overload binds to in its declared
	// calling convention, set only for a `external` procedure declaration;
	// "" means an ordinary Clay body (§4.4's "C-ABI" call lowering kind).
	ExternalName string
	ExternalConv types.CallingConv

	// LLVMBody holds a textual backend-IR snippet (§4.4's "LLVM-body" call
	// lowering kind) with `$name`/`${expr}` interpolation; "" means Body is
	// a normal statement list instead.
	LLVMBody string
}

// EnvRef is an opaque handle the hir package re-exports so Overload doesn't
// need to import internal/env (which in turn depends on hir); internal/env
// defines the concrete type this points to.
type EnvRef struct {
	Any any
}

// Callable is a named, possibly-overloaded procedure or a record/variant
// constructor being invoked.
type Callable struct {
	Name      string
	Overloads []*Overload
}

// RecordDecl declares a record type. Either Fields or ComputedBody is set:
// a computed body is an expression evaluating to a tuple of (Identifier,
// Type) pairs, optionally wrapped in a RecordWithProperties descriptor
// (§4.1).
type RecordDecl struct {
	At            Position
	Name          string
	Params        []string // pattern/param variable names
	VarParam      string   // "" if this record has no var-param
	Fields        []FieldDecl
	ComputedBody  Expr
	Env           *EnvRef
}

// FieldDecl is one declared field of a record.
type FieldDecl struct {
	Name     string
	Declared Expr
	IsVar    bool // expands to a sequence of types at field materialization
}

// VariantDecl declares a variant type: a set of member types assembled
// from default instances plus predicated instance declarations (§4.1).
type VariantDecl struct {
	At        Position
	Name      string
	Params    []string
	Defaults  []Expr // default instance member-type expressions
	Instances []VariantInstance
	Env       *EnvRef
}

// VariantInstance is one `instance V (...) | predicate = members` clause.
type VariantInstance struct {
	Pattern   Expr
	Predicate Expr // nil means always-true
	Members   Expr // evaluates to a type or a sequence of types
}

// EnumDecl declares an enum type as an ordered list of member names.
type EnumDecl struct {
	At      Position
	Name    string
	Members []string
}

// NewTypeDecl declares a nominal wrapper type around an existing type.
type NewTypeDecl struct {
	At   Position
	Name string
	Base Expr
}

// GlobalVar declares a module-scope variable. Its instance (for a given set
// of indexing params, if the variable is itself parametrized by statics) is
// created lazily the first time it is referenced (§4.2).
type GlobalVar struct {
	At       Position
	Name     string
	Declared Expr // nil means infer from Init
	Init     Expr
	Env      *EnvRef
}

// Module is the root of a single compilation unit as the analyzer sees it:
// a flat list of top-level declarations plus the module's default integer
// literal type (used by the literal decoder, §4.6).
type Module struct {
	Name                string
	Records             []*RecordDecl
	Variants            []*VariantDecl
	Enums               []*EnumDecl
	NewTypes            []*NewTypeDecl
	Callables           []*Callable
	Globals             []*GlobalVar
	DefaultIntegerType  string // e.g. "Int32"; literal decoder fallback
	MainCallable        string // "" if this module has no program entry point
}
