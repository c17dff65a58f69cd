// Package specialize implements spec.md §4.3: the specialization/invoke
// engine that turns a callable plus an argument-types/tempness key into a
// unique monomorphized InvokeEntry, ranking and binding overloads and
// analyzing each entry's body exactly once.
package specialize

import (
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// InvokeEntry is the monomorphized callable record of spec.md §3: created,
// then filled in two phases (declare → analyze → lower) and never evicted
// within a compilation.
type InvokeEntry struct {
	Callable *hir.Callable
	ArgsKey  []*types.Type
	TempKey  []values.Tempness

	analyzed bool

	ReturnIsRefFlags  []bool
	ReturnTypesList   []*types.Type
	Body              []hir.Stmt
	Env               *env.Env
	FixedArgNames     []string
	VarArgName        string // "" if this entry has no trailing variadic param
	VarArgTypes       []*types.Type
	ForwardedRValueFlags []bool
	CallByName        bool
	IsInline          hir.InlineMode

	// ExternalName/ExternalConv/LLVMBody mirror the declaring hir.Overload
	// (see its doc comments); internal/lower uses them to pick the call
	// lowering kind (Direct, C-ABI, or LLVM-body) for this entry.
	ExternalName string
	ExternalConv types.CallingConv
	LLVMBody     string

	// LoweredFn is filled in by internal/lower once the entry has been
	// lowered to a concrete backend function; c_wrappers_by_cc is the
	// per-calling-convention set of C-ABI wrapper handles generated on
	// demand for foreign-call sites.
	LoweredFn     any
	CWrappersByCC map[types.CallingConv]any
}

// ReturnTypes implements analyzer.InvokeResult.
func (e *InvokeEntry) ReturnTypes() []*types.Type { return e.ReturnTypesList }

// ReturnIsRef implements analyzer.InvokeResult.
func (e *InvokeEntry) ReturnIsRef() []bool { return e.ReturnIsRefFlags }

// Analyzed implements analyzer.InvokeResult.
func (e *InvokeEntry) Analyzed() bool { return e.analyzed }
