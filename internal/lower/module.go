package lower

import (
	"github.com/clay-lang/claycore/internal/backend"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// ModuleCtorPriority is the registration priority claycore assigns its own
// global-init/destroy functions (spec.md §4.4). A single, lowest-priority
// slot is all a module needs since every global of one module runs through
// the one synthesized constructor/destructor pair below, in declaration
// order (and reverse, for destruction).
const ModuleCtorPriority = 65535

// GlobalBinding pairs a declared module-scope variable with the backend
// global storage already created for it (DeclareGlobal), so constructor and
// destructor emission don't re-run global lookup.
type GlobalBinding struct {
	Decl   *hir.GlobalVar
	Type   *types.Type
	Global values.Handle
}

// ModuleInit drives spec.md §4.4's module constructor/destructor pass: one
// synthesized function runs every global's initializer in declaration
// order, a second runs every destructor in reverse order, and both are
// registered with the backend's global-ctor/dtor mechanism, falling back to
// an explicit atexit call appended to the constructor when the target
// reports no destructor-array support.
type ModuleInit struct {
	Backend      backend.Backend
	Stmt         *StmtLowerer
	Destroy      Destroyer
	SentinelType *types.Type
}

// newModuleFunctionContext declares name as a zero-argument sentinel-
// returning function and wires up the three fixed blocks every lowered
// function needs (spec.md §4.4's init/return/exception block triad).
func (m *ModuleInit) newModuleFunctionContext(name string) (*Context, values.Handle) {
	fn := m.Backend.DeclareFunction(name, nil)
	ctx := NewContext(m.Backend, m.Destroy, fn)
	ctx.InitBlock = m.Backend.NewBlock(fn, "entry")
	ctx.ReturnBlock = m.Backend.NewBlock(fn, "return")
	ctx.ExceptionBlock = m.Backend.NewBlock(fn, "exn")
	ctx.PushReturnTarget(ctx.ReturnBlock, nil)
	m.Backend.SetInsertPoint(ctx.InitBlock)
	return ctx, fn
}

// finish emits the standard two-block tail every straight-line module
// function shares: the return block loads null (nothing to report, since
// reaching it means every statement above completed without raising) and
// the exception block loads whatever the shared ExceptionSlot last
// received from the raise site that branched here (spec.md §4.4's sentinel
// invariant — the slot exists precisely so multiple raise sites can all
// target the one exception block without a backend Phi instruction).
// Callers must be in ctx's current (not yet terminated) insertion point
// when they call finish.
func (m *ModuleInit) finish(ctx *Context) {
	m.Backend.Br(ctx.ReturnBlock)

	m.Backend.SetInsertPoint(ctx.ReturnBlock)
	m.Backend.Ret([]values.Handle{m.Backend.ConstNull(m.SentinelType)})

	m.Backend.SetInsertPoint(ctx.ExceptionBlock)
	m.Backend.Ret([]values.Handle{m.Backend.Load(m.SentinelType, ctx.ExceptionSlot(m.SentinelType))})
}

// emitDestructorBody builds the module's "clayglobals_destroy" function
// body: destroys every initialized global in reverse declaration order,
// matching the LIFO discipline every other scope in the driver follows.
func (m *ModuleInit) emitDestructorBody(moduleName string, bindings []GlobalBinding) (values.Handle, error) {
	ctx, fn := m.newModuleFunctionContext(moduleName + ".clayglobals_destroy")

	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if m.Destroy == nil {
			continue
		}
		if err := m.Destroy(ctx, values.CValue{Type: b.Type, Backend: b.Global}); err != nil {
			return nil, err
		}
	}

	m.finish(ctx)
	return fn, nil
}

// EmitModuleInit builds both the constructor and destructor functions for a
// module's globals and registers them with the backend's ctor/dtor
// mechanism. When RegisterDtor reports no destructor-array support (e.g. an
// MSVC-style target, spec.md §4.4), the destructor instead runs via an
// explicit atexit call emitted from inside the constructor, right after the
// last global initializer and before the constructor's own normal-path
// branch — this is why the atexit fallback has to live inside this method
// rather than being bolted on afterward: by the time EmitModuleInit
// returns, the constructor's entry block is already terminated.
func (m *ModuleInit) EmitModuleInit(moduleName string, bindings []GlobalBinding) (ctorFn, dtorFn values.Handle, err error) {
	dtorFn, err = m.emitDestructorBody(moduleName, bindings)
	if err != nil {
		return nil, nil, err
	}

	ctx, fn := m.newModuleFunctionContext(moduleName + ".clayglobals_init")
	for _, b := range bindings {
		ctx.Bind(b.Decl.Name, values.CValue{Type: b.Type, Backend: b.Global})
		assign := &hir.Assignment{
			Kind: hir.AssignInit,
			LHS:  []hir.Expr{&hir.Identifier{Name: b.Decl.Name}},
			RHS:  []hir.Expr{b.Decl.Init},
		}
		if err := m.Stmt.lowerAssignment(ctx, assign); err != nil {
			return nil, nil, err
		}
	}

	if ok := m.Backend.RegisterDtor(dtorFn, ModuleCtorPriority); !ok {
		m.Backend.EmitAtExitCall(dtorFn)
	}
	m.Backend.RegisterCtor(fn, ModuleCtorPriority)

	m.finish(ctx)
	return fn, dtorFn, nil
}
