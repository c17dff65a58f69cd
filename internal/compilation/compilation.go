// Package compilation wires the per-process collaborators of spec.md §6
// into the external API a driver (cmd/claycore) actually calls: construct
// once, install primitive types against a concrete backend's data layout,
// then analyze and lower one module at a time.
package compilation

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/analyzer"
	"github.com/clay-lang/claycore/internal/backend"
	"github.com/clay-lang/claycore/internal/diagnostics"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/literals"
	"github.com/clay-lang/claycore/internal/lower"
	"github.com/clay-lang/claycore/internal/primops"
	"github.com/clay-lang/claycore/internal/specialize"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// DefaultMaxAggregateElements is the default value of
// Compilation.MaxAggregateElements (spec.md §9 Open Question). The value is
// stored and can be overridden, but no analysis or lowering step reads it:
// primitive aggregates (Array/Vec/Tuple) of every width are handled the
// same way.
const DefaultMaxAggregateElements = 8

// Compilation is the process-wide context spec.md §6 describes: the type
// interner, the analyzer/specialization pair (wired into each other the
// way analyzer.New's doc comment prescribes), the lowering driver, and the
// two process-wide mode flags (set_inline_enabled/set_exceptions_enabled).
type Compilation struct {
	Interner *types.Interner
	Analyze  *analyzer.Analyzer
	Engine   *specialize.Engine
	Eval     *Evaluator
	Backend  backend.Backend
	Lowerer  *lower.Lowerer
	Stmt     *lower.StmtLowerer

	// RootEnv holds every binding init_types installs (primitive type
	// aliases, primitive-operation names) — every module's own top-level
	// scope is an enclosed child of this one, exactly as a declared
	// overload's captured Env is an enclosed child of its declaring scope
	// (spec.md §4.2, "lexically scoped chain").
	RootEnv *env.Env

	// SentinelType is Pointer(UInt8) — the fixed exception-sentinel type
	// spec.md §4.4 assigns every lowered function's hidden last return slot.
	SentinelType *types.Type

	InlineEnabled     bool
	ExceptionsEnabled bool

	// MaxAggregateElements is isPrimitiveAggregateTooLarge's threshold
	// (spec.md §9 Open Question), defaulting to DefaultMaxAggregateElements.
	MaxAggregateElements int

	// Diagnostics receives progress/notice output as analysis and lowering
	// proceed; defaults to a discarding sink so a caller that never sets one
	// doesn't need a nil check of its own.
	Diagnostics *diagnostics.Sink

	modules map[string]*moduleState
}

// moduleState holds the per-module bookkeeping init_types doesn't need but
// analyze/lower do: the module's own top-level scope and the backend
// globals created for its module-scope variables (for EmitModuleInit).
type moduleState struct {
	scope    *env.Env
	bindings []lower.GlobalBinding
}

// New creates a Compilation bound to be. init_types must still be called
// before analyzing or lowering anything (it installs the primitive type
// and primop bindings every module's scope chains up to).
func New(be backend.Backend) *Compilation {
	interner := types.NewInterner()
	an := analyzer.New(interner)
	reg := specialize.NewRegistry()
	engine := specialize.NewEngine(reg, an)
	eval := &Evaluator{Interner: interner}
	decoder := literals.New(interner)
	lo := &lower.Lowerer{Interner: interner, Invoke: engine, Literals: decoder, Eval: eval}
	sl := &lower.StmtLowerer{Expr: lo}
	lo.Stmt = sl

	an.SetEvaluator(eval)
	an.SetInvoker(engine)
	an.SetLiteralDecoder(decoder)

	return &Compilation{
		Interner:             interner,
		Analyze:              an,
		Engine:               engine,
		Eval:                 eval,
		Backend:              be,
		Lowerer:              lo,
		Stmt:                 sl,
		ExceptionsEnabled:    true,
		MaxAggregateElements: DefaultMaxAggregateElements,
		Diagnostics:          diagnostics.Discard(),
		modules:              make(map[string]*moduleState),
	}
}

// SetInlineEnabled implements set_inline_enabled(bool) (spec.md §6).
func (c *Compilation) SetInlineEnabled(enabled bool) { c.InlineEnabled = enabled }

// SetExceptionsEnabled implements set_exceptions_enabled(bool) (spec.md
// §6); it also governs every Context this Compilation
// constructs from here on (CheckExceptions is read once per function at
// lowering time, so toggling this between modules takes effect on the next
// lower_entry_points call).
func (c *Compilation) SetExceptionsEnabled(enabled bool) { c.ExceptionsEnabled = enabled }

// SetMaxAggregateElements overrides isPrimitiveAggregateTooLarge's
// threshold; n <= 0 is rejected silently (the existing value is kept)
// since 0 would make every aggregate "too large", which no caller wants.
func (c *Compilation) SetMaxAggregateElements(n int) {
	if n > 0 {
		c.MaxAggregateElements = n
	}
}

// SetCallByNameDepthLimit overrides the specialization engine's call-by-name
// recursion bound (spec.md §7, §9 Open Question; default
// analyzer.CallByNameDepthLimit).
func (c *Compilation) SetCallByNameDepthLimit(n int) {
	if n > 0 {
		c.Engine.DepthLimit = n
	}
}

// primitiveInts lists the fixed-width integer aliases init_types installs,
// matching types.Type.String()'s own naming convention
// ("Int32"/"UInt8"/...) so a literal-decoder default or a declared-type
// expression spelled that way resolves to the identical interned Type.
var primitiveInts = []struct {
	name   string
	bits   int
	signed bool
}{
	{"Int8", 8, true}, {"UInt8", 8, false},
	{"Int16", 16, true}, {"UInt16", 16, false},
	{"Int32", 32, true}, {"UInt32", 32, false},
	{"Int64", 64, true}, {"UInt64", 64, false},
	{"Int128", 128, true}, {"UInt128", 128, false},
}

var primitiveFloats = []struct {
	name string
	bits int
}{
	{"Float32", 32}, {"Float64", 64}, {"Float80", 80},
}

// InitTypes implements init_types(target-data-layout) (spec.md §6): builds
// RootEnv and installs every primitive numeric type alias plus every
// primitive-operation name (internal/primops's fixed, backend-independent
// table) as an EntryPrimOp binding, the same way a declared `external`
// name resolves without overload ranking (spec.md §4.5). dl is accepted
// for parity with the external operation's signature; the interner only
// consults a DataLayout lazily, the first time a type's Layout is
// queried, so nothing here needs it directly.
func (c *Compilation) InitTypes(dl types.DataLayout) {
	c.RootEnv = env.New()
	c.SentinelType = c.Interner.InternPointer(c.Interner.InternInteger(8, false))

	c.RootEnv.Define("Bool", env.Entry{Kind: env.EntryType, Type: c.Interner.InternBool()})
	for _, p := range primitiveInts {
		c.RootEnv.Define(p.name, env.Entry{Kind: env.EntryType, Type: c.Interner.InternInteger(p.bits, p.signed)})
	}
	for _, p := range primitiveFloats {
		c.RootEnv.Define(p.name, env.Entry{Kind: env.EntryType, Type: c.Interner.InternFloat(p.bits, false)})
	}

	for i := 0; i < primops.Count(); i++ {
		code := primops.PrimOpCode(i)
		c.RootEnv.Define(code.String(), env.Entry{Kind: env.EntryPrimOp, PrimOp: i})
	}
}

// moduleScope returns (creating if needed) m's top-level scope, enclosed
// in RootEnv so every module sees the primitive types/primops init_types
// installed without redeclaring them.
func (c *Compilation) moduleScope(m *hir.Module) *moduleState {
	st, ok := c.modules[m.Name]
	if !ok {
		st = &moduleState{scope: env.NewEnclosed(c.RootEnv)}
		c.modules[m.Name] = st
		for _, g := range m.Globals {
			c.moduleScope0(st, g)
		}
	}
	return st
}

// moduleScope0 binds one global's name to its initializer expression as an
// EntryAlias, re-analyzed in the module's own scope on every reference —
// the same "Name references" rule an ordinary alias declaration uses
// (spec.md §4.2). The analyzer's own globalInstance table (internal/
// analyzer/analyzer.go) still materializes a single instantiation per
// indexing-params key; this binding only makes the name resolvable at all.
func (c *Compilation) moduleScope0(st *moduleState, g *hir.GlobalVar) {
	st.scope.Define(g.Name, env.Entry{Kind: env.EntryAlias, AliasExpr: g.Init, AliasEnv: st.scope})
}

// AnalyzeEntry implements analyze_entry(module) (spec.md §6): analyzes
// every reachable top-level declaration — module-scope globals (so their
// declared/inferred types are fixed before lowering needs them) and, when
// present, the module's designated program entry point.
func (c *Compilation) AnalyzeEntry(m *hir.Module) error {
	st := c.moduleScope(m)

	for _, g := range m.Globals {
		if g.Declared != nil {
			if _, err := c.Eval.EvalType(g.Declared, st.scope); err != nil {
				return fmt.Errorf("compilation: analyzing global %s.%s: %w", m.Name, g.Name, err)
			}
		}
		if _, err := c.Analyze.AnalyzeOne(g.Init, st.scope); err != nil {
			return fmt.Errorf("compilation: analyzing global %s.%s: %w", m.Name, g.Name, err)
		}
	}

	if m.MainCallable == "" {
		return nil
	}
	main, err := c.requireCallable(m, m.MainCallable)
	if err != nil {
		return err
	}
	c.Diagnostics.Progress("analyzing entry point %s.%s", m.Name, m.MainCallable)
	if _, err := c.Engine.Invoke(main, nil, nil); err != nil {
		return fmt.Errorf("compilation: analyzing entry point %s: %w", m.MainCallable, err)
	}
	return nil
}

func (c *Compilation) requireCallable(m *hir.Module, name string) (*hir.Callable, error) {
	for _, cb := range m.Callables {
		if cb.Name == name {
			return cb, nil
		}
	}
	return nil, fmt.Errorf("compilation: module %s declares no callable named %s", m.Name, name)
}

// LowerEntryPoints implements lower_entry_points(module, include-imports?)
// (spec.md §6): lowers every InvokeEntry the specialization registry has
// accumulated for m's callables (populated by AnalyzeEntry/Engine.Invoke
// calls reachable from analysis) to backend IR, then emits the module's
// global constructor/destructor pair. includeImports is accepted for
// parity with the external operation's signature; a single-module driver
// (no cross-module import graph has been wired into hir.Module yet) lowers
// exactly the entries m's own callables registered either way.
func (c *Compilation) LowerEntryPoints(m *hir.Module, includeImports bool) error {
	_ = includeImports
	st := c.moduleScope(m)

	names := make(map[string]bool, len(m.Callables))
	for _, cb := range m.Callables {
		names[cb.Name] = true
	}
	pending := c.Engine.Registry.All()
	lowered := 0
	for _, entry := range pending {
		if !entry.Analyzed() || entry.LoweredFn != nil {
			continue
		}
		if !names[entry.Callable.Name] {
			continue
		}
		if err := c.lowerEntry(entry); err != nil {
			return fmt.Errorf("compilation: lowering %s: %w", entry.Callable.Name, err)
		}
		lowered++
		c.Diagnostics.Progress("lowered %s.%s (%d of %d candidate entries)", m.Name, entry.Callable.Name, lowered, len(pending))
	}

	bindings, err := c.emitGlobalStorage(m, st)
	if err != nil {
		return err
	}
	mi := &lower.ModuleInit{
		Backend:      c.Backend,
		Stmt:         c.Stmt,
		Destroy:      c.destroyValue,
		SentinelType: c.SentinelType,
	}
	if _, _, err := mi.EmitModuleInit(m.Name, bindings); err != nil {
		return fmt.Errorf("compilation: emitting module init for %s: %w", m.Name, err)
	}
	return nil
}

// emitGlobalStorage declares backend global storage for every one of m's
// globals not already created, building the GlobalBinding list
// EmitModuleInit consumes.
func (c *Compilation) emitGlobalStorage(m *hir.Module, st *moduleState) ([]lower.GlobalBinding, error) {
	if st.bindings != nil {
		return st.bindings, nil
	}
	bindings := make([]lower.GlobalBinding, 0, len(m.Globals))
	for _, g := range m.Globals {
		p, err := c.Analyze.AnalyzeOne(g.Init, st.scope)
		if err != nil {
			return nil, fmt.Errorf("compilation: resolving global %s.%s's type: %w", m.Name, g.Name, err)
		}
		global := c.Backend.DeclareGlobal(m.Name+"."+g.Name, p.Type)
		bindings = append(bindings, lower.GlobalBinding{Decl: g, Type: p.Type, Global: global})
	}
	st.bindings = bindings
	return bindings, nil
}

// destroyValue is the Destroyer every Context this Compilation builds
// shares: spec.md §4.4 resolves a destructor as an ordinary call to a
// (possibly builtin) `destroy` overload, which is out of scope until a
// concrete builtin-destructor registry exists; for now only types with no
// destructor (the common case for primitive and aggregate-of-primitive
// types) are handled, and anything else is a no-op — this mirrors
// internal/lower's own Destroyer doc comment ("a nil Destroy func is
// treated as this type has no destructor").
func (c *Compilation) destroyValue(ctx *lower.Context, v values.CValue) error {
	return nil
}

// lowerEntry declares entry's backend function (one pointer parameter per
// fixed arg, then one output pointer per return position, per spec.md
// §4.4's calling convention) and drives its body through StmtLowerer. An
// entry whose declaring overload names an LLVM-body (entry.LLVMBody) or an
// external symbol (entry.ExternalName) is not backed by an hir.Body at
// all — its definition comes from the callee's own declaration instead of
// a statement walk, so those two shapes are built by dedicated helpers
// rather than falling through to the ordinary statement-lowering path.
func (c *Compilation) lowerEntry(entry *specialize.InvokeEntry) error {
	if entry.ExternalName != "" {
		return c.lowerExternalEntry(entry)
	}

	paramTypes := make([]*types.Type, 0, len(entry.ArgsKey)+len(entry.ReturnTypesList))
	for _, argType := range entry.ArgsKey {
		paramTypes = append(paramTypes, c.Interner.InternPointer(argType))
	}
	for _, rt := range entry.ReturnTypesList {
		paramTypes = append(paramTypes, c.Interner.InternPointer(rt))
	}

	fn := c.Backend.DeclareFunction(symbolFor(entry), paramTypes)

	if entry.LLVMBody != "" {
		return c.lowerLLVMBodyEntry(entry, fn)
	}

	ctx := lower.NewContext(c.Backend, c.destroyValue, fn)
	ctx.CheckExceptions = c.ExceptionsEnabled
	ctx.Env = env.NewEnclosed(entry.Env)
	ctx.InitBlock = c.Backend.NewBlock(fn, "entry")
	ctx.ReturnBlock = c.Backend.NewBlock(fn, "return")
	ctx.ExceptionBlock = c.Backend.NewBlock(fn, "exn")
	outs := make([]values.Handle, len(entry.ReturnTypesList))
	for i := range entry.ReturnTypesList {
		outs[i] = c.Backend.Param(fn, len(entry.ArgsKey)+i)
	}
	ctx.PushReturnTarget(ctx.ReturnBlock, outs)
	c.Backend.SetInsertPoint(ctx.InitBlock)

	for i, name := range entry.FixedArgNames {
		argType := entry.ArgsKey[i]
		ctx.Bind(name, values.CValue{Type: argType, Backend: c.Backend.Param(fn, i)})
	}

	body := &hir.Block{Stmts: entry.Body}
	terminated, err := c.Stmt.LowerBlock(ctx, body)
	if err != nil {
		return err
	}
	if !terminated {
		c.Backend.Br(ctx.ReturnBlock)
	}

	c.Backend.SetInsertPoint(ctx.ReturnBlock)
	c.Backend.Ret([]values.Handle{c.Backend.ConstNull(c.SentinelType)})

	c.Backend.SetInsertPoint(ctx.ExceptionBlock)
	c.Backend.Ret([]values.Handle{c.Backend.Load(c.SentinelType, ctx.ExceptionSlot(c.SentinelType))})

	entry.LoweredFn = fn
	return nil
}

// lowerLLVMBodyEntry installs entry.LLVMBody as fn's definition, with each
// fixed argument name interpolated to its corresponding parameter handle
// (spec.md §4.4's LLVM-body call-lowering kind). The call site itself then
// lowers as an ordinary Direct call to fn — the kind only changes how the
// callee's body was produced, not the pointer-args-then-pointer-outs ABI
// every entry shares.
func (c *Compilation) lowerLLVMBodyEntry(entry *specialize.InvokeEntry, fn values.Handle) error {
	interp := &paramInterpolator{backend: c.Backend, fn: fn, names: entry.FixedArgNames}
	text, err := lower.Interpolate(entry.LLVMBody, interp)
	if err != nil {
		return fmt.Errorf("compilation: interpolating llvm-body for %s: %w", entry.Callable.Name, err)
	}
	if err := c.Backend.ParseFunctionBody(fn, text); err != nil {
		return fmt.Errorf("compilation: parsing llvm-body for %s: %w", entry.Callable.Name, err)
	}
	entry.LoweredFn = fn
	return nil
}

// paramInterpolator resolves an LLVM-body's $name references to a
// declared function's own formal parameters, by position in
// FixedArgNames (lower.Interpolator).
type paramInterpolator struct {
	backend backend.Backend
	fn      values.Handle
	names   []string
}

func (p *paramInterpolator) ResolveName(name string) (string, error) {
	for i, n := range p.names {
		if n == name {
			return fmt.Sprintf("%v", p.backend.Param(p.fn, i)), nil
		}
	}
	return "", fmt.Errorf("compilation: llvm-body references unknown parameter %q", name)
}

func (p *paramInterpolator) ResolveExpr(expr string) (string, error) {
	return p.ResolveName(expr)
}

// lowerExternalEntry declares entry's foreign symbol under the target's
// C-ABI calling convention instead of building an ordinary sentinel-
// returning function (spec.md §4.4's C-ABI call-lowering kind): a foreign
// function has no sentinel slot to fill and no Clay-level body, so
// LoweredFn here is the raw extern symbol handle a call site invokes
// through lower.Context.LowerCABICall.
func (c *Compilation) lowerExternalEntry(entry *specialize.InvokeEntry) error {
	ext, ok := c.Backend.(backend.ExternalTarget)
	if !ok {
		return fmt.Errorf("compilation: backend does not implement ExternalTarget, cannot declare external %q", entry.Callable.Name)
	}
	paramTypes, _ := ext.LowerSignature(entry.ExternalConv, entry.ArgsKey, entry.ReturnTypesList)
	fn := c.Backend.DeclareFunction(entry.ExternalName, paramTypes)
	entry.LoweredFn = fn
	return nil
}

func symbolFor(entry *specialize.InvokeEntry) string {
	return entry.Callable.Name
}

// CodegenMain implements codegen_main(module) (spec.md §6): emits the
// C-ABI `main` wrapper around m's designated entry point, matching the
// target's process-entry calling convention (argc/argv in, int exit code
// out) rather than the sentinel-return ABI every ordinary Clay function
// uses — `main` is the one function a host loader calls directly, so it
// cannot itself return a sentinel pointer.
func (c *Compilation) CodegenMain(m *hir.Module) (values.Handle, error) {
	if m.MainCallable == "" {
		return nil, fmt.Errorf("compilation: module %s has no program entry point", m.Name)
	}
	main, err := c.requireCallable(m, m.MainCallable)
	if err != nil {
		return nil, err
	}
	entry, err := c.Engine.Invoke(main, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("compilation: resolving entry point %s: %w", m.MainCallable, err)
	}
	if entry.LoweredFn == nil {
		if err := c.lowerEntry(entry); err != nil {
			return nil, err
		}
	}
	clayMain := entry.LoweredFn.(values.Handle)

	i32 := c.Interner.InternInteger(32, true)
	wrapper := c.Backend.DeclareFunction(m.Name+".main", nil)
	entryBlock := c.Backend.NewBlock(wrapper, "entry")
	c.Backend.SetInsertPoint(entryBlock)
	sentinel := c.Backend.Call(clayMain, nil)
	notNull := c.Backend.ICmp(backend.PredNE, sentinel, c.Backend.ConstNull(c.SentinelType))
	failBlock := c.Backend.NewBlock(wrapper, "main.fail")
	okBlock := c.Backend.NewBlock(wrapper, "main.ok")
	c.Backend.CondBr(notNull, failBlock, okBlock)

	c.Backend.SetInsertPoint(failBlock)
	c.Backend.Ret([]values.Handle{c.Backend.ConstInt(i32, []byte{1})})

	c.Backend.SetInsertPoint(okBlock)
	c.Backend.Ret([]values.Handle{c.Backend.ConstInt(i32, []byte{0})})

	return wrapper, nil
}
