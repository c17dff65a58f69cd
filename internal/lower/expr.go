package lower

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/backend"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/primops"
	"github.com/clay-lang/claycore/internal/specialize"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// StaticEvaluator is the lowering-time subset of analyzer.StaticEvaluator
// an Eval expression needs: the statics it resolves to already determined
// their shape during analysis, so lowering only has to re-run the same
// evaluation and materialize the int/bool results it yields.
type StaticEvaluator interface {
	EvaluateMultiStatic(e hir.Expr, scope *env.Env) ([]types.StaticObject, error)
}

// LiteralDecoder turns an undecoded literal token into a typed constant,
// mirroring internal/analyzer's collaborator of the same name so both
// passes share one decoder instance (internal/literals).
type LiteralDecoder interface {
	DecodeInt(text, suffix string, defaultIntType *types.Type) (values.ValueHolder, *types.Type, error)
	DecodeFloat(text, suffix string) (values.ValueHolder, *types.Type, error)
}

// Invoker resolves a callable to its monomorphized entry, the same way the
// analyzer's Invoker does, but returning the concrete *specialize.InvokeEntry
// lowering needs (LoweredFn, ExternalName/Conv, LLVMBody). Implemented by
// *specialize.Engine's Invoke method.
type Invoker interface {
	Invoke(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) (*specialize.InvokeEntry, error)
}

// Lowerer is the concrete ExprLowerer (spec.md §4.4): it walks hir.Expr
// against a Context whose Env chain is rooted in the InvokeEntry's capture
// environment (so identifiers resolve to EntryCallable/EntryPrimOp/EntryType
// bindings the same way analysis saw them) but shadowed with CValue
// bindings for this function's own locals.
type Lowerer struct {
	Interner *types.Interner
	Literals LiteralDecoder
	Invoke   Invoker

	// Stmt lowers a force-inlined entry's body in place at the call site
	// (spec.md §4.4's force-inline call-lowering kind). Wired after
	// construction since StmtLowerer embeds this Lowerer as its own
	// ExprLowerer collaborator (see internal/compilation's Compilation
	// constructor).
	Stmt *StmtLowerer

	// Eval resolves a compile-time `eval` expression's operand, mirroring
	// the analyzer's own Eval collaborator. Optional: a nil Eval makes
	// lowering an Eval expression report a clear configuration error
	// instead of panicking.
	Eval StaticEvaluator
}

var _ ExprLowerer = (*Lowerer)(nil)

// LowerRef implements ExprLowerer.LowerRef.
func (lo *Lowerer) LowerRef(ctx *Context, e hir.Expr) (ExprResult, error) {
	switch n := e.(type) {
	case *hir.Identifier:
		return lo.lowerIdentifier(ctx, n)
	case *hir.IntLiteral:
		return lo.lowerIntLiteral(ctx, n)
	case *hir.FloatLiteral:
		return lo.lowerFloatLiteral(ctx, n)
	case *hir.CharLiteral:
		return lo.lowerCharLiteral(ctx, n)
	case *hir.StringLiteral:
		return lo.lowerStringLiteral(ctx, n)
	case *hir.Tuple:
		return lo.lowerTuplePositional(ctx, n)
	case *hir.FieldRef:
		return lo.lowerFieldRef(ctx, n)
	case *hir.Call:
		return lo.lowerCall(ctx, n)
	case *hir.And, *hir.Or:
		h, err := lo.LowerBool(ctx, e)
		if err != nil {
			return ExprResult{}, err
		}
		return ExprResult{Values: values.MultiCValue{{Type: lo.Interner.InternBool(), Backend: h}}}, nil
	case *hir.ThrowValue:
		return ExprResult{}, lo.lowerThrowValue(ctx, n)
	case *hir.Index:
		return lo.lowerIndex(ctx, n)
	case *hir.StaticIndex:
		return lo.lowerStaticIndex(ctx, n)
	case *hir.VariadicOp:
		// analyzer.analyzeVariadicOp itself only validates operand
		// analyzability and yields an untyped result (values.PValue{Type:
		// nil}) — picking the concrete target primitive for n.Op is an
		// external-collaborator concern the analyzer doesn't resolve either,
		// so there is no result shape for lowering to build an IR sequence
		// against.
		return ExprResult{}, fmt.Errorf("lower: variadic operator %q has no resolved target primitive to lower against", n.Op)
	case *hir.Lambda:
		// hir.Lambda carries no capture list (just Params/Body), so there is
		// no way to materialize the closure's environment record here —
		// capture analysis is a prerequisite this HIR shape doesn't carry,
		// not something the lowering driver can recover on its own.
		return ExprResult{}, fmt.Errorf("lower: closure lowering needs a capture list hir.Lambda does not carry")
	case *hir.Eval:
		return lo.lowerEval(ctx, n)
	case *hir.Unpack:
		return lo.LowerRef(ctx, n.Operand)
	case *hir.Foreign:
		// ctx.Env only ever holds one lexical scope chain; there is no
		// module-name -> environment registry a Foreign reference could look
		// Module up in (env.EntryModule stores the *hir.Module AST node, not
		// an environment to resolve Name against).
		return ExprResult{}, fmt.Errorf("lower: foreign-qualified reference %s.%s needs a module environment registry this driver was not given", n.Module, n.Name)
	default:
		return ExprResult{}, fmt.Errorf("lower: unhandled expression kind %T", e)
	}
}

// LowerInto implements ExprLowerer.LowerInto: lower e at its natural
// location, then copy each resulting value into its destination by value
// (a full load of the source's backend type followed by a store — valid
// for any type the backend represents as a single SSA aggregate).
func (lo *Lowerer) LowerInto(ctx *Context, e hir.Expr, dests []values.Handle) error {
	result, err := lo.LowerRef(ctx, e)
	if err != nil {
		return err
	}
	if len(result.Values) != len(dests) {
		return fmt.Errorf("lower: LowerInto arity mismatch: %d values for %d destinations", len(result.Values), len(dests))
	}
	for i, cv := range result.Values {
		loaded := ctx.Backend.Load(cv.Type, cv.Backend)
		ctx.Backend.Store(loaded, dests[i])
	}
	return nil
}

// LowerBool implements ExprLowerer.LowerBool, honoring short-circuit
// evaluation for And/Or (Testable Property 8): the right operand is only
// lowered (and its temporaries only created) on the path where it's
// needed.
func (lo *Lowerer) LowerBool(ctx *Context, e hir.Expr) (values.Handle, error) {
	boolType := lo.Interner.InternBool()
	switch n := e.(type) {
	case *hir.And:
		return lo.lowerShortCircuit(ctx, n.Left, n.Right, boolType, false)
	case *hir.Or:
		return lo.lowerShortCircuit(ctx, n.Left, n.Right, boolType, true)
	default:
		result, err := lo.LowerRef(ctx, e)
		if err != nil {
			return nil, err
		}
		if len(result.Values) != 1 {
			return nil, fmt.Errorf("lower: boolean context requires exactly one value, got %d", len(result.Values))
		}
		return ctx.Backend.Load(boolType, result.Values[0].Backend), nil
	}
}

// lowerShortCircuit implements both And (shortCircuitOnOr=false: skip right
// when left is false) and Or (shortCircuitOnOr=true: skip right when left
// is true), merging through a single i1 slot (spec.md §5: the right
// operand's temporaries are destroyed before the merge block, which falls
// out here because the right operand is only ever lowered inside its own
// arm's block).
func (lo *Lowerer) lowerShortCircuit(ctx *Context, left, right hir.Expr, boolType *types.Type, shortCircuitOnOr bool) (values.Handle, error) {
	leftVal, err := lo.LowerBool(ctx, left)
	if err != nil {
		return nil, err
	}

	shortBlock := ctx.Backend.NewBlock(ctx.Fn, "logic.short")
	rightBlock := ctx.Backend.NewBlock(ctx.Fn, "logic.rhs")
	mergeBlock := ctx.Backend.NewBlock(ctx.Fn, "logic.merge")
	slot := ctx.AllocSlot(boolType.String(), func() values.Handle { return ctx.Backend.Alloca(boolType) })

	if shortCircuitOnOr {
		ctx.Backend.CondBr(leftVal, shortBlock, rightBlock)
	} else {
		ctx.Backend.CondBr(leftVal, rightBlock, shortBlock)
	}

	ctx.Backend.SetInsertPoint(shortBlock)
	ctx.Backend.Store(leftVal, slot)
	ctx.Backend.Br(mergeBlock)

	ctx.Backend.SetInsertPoint(rightBlock)
	rightVal, err := lo.LowerBool(ctx, right)
	if err != nil {
		return nil, err
	}
	ctx.Backend.Store(rightVal, slot)
	ctx.Backend.Br(mergeBlock)

	ctx.Backend.SetInsertPoint(mergeBlock)
	ctx.DiscardSlot(boolType.String(), slot)
	return ctx.Backend.Load(boolType, slot), nil
}

func (lo *Lowerer) lowerIdentifier(ctx *Context, n *hir.Identifier) (ExprResult, error) {
	ent, err := ctx.Env.Require(n.Name)
	if err != nil {
		return ExprResult{}, err
	}
	switch ent.Kind {
	case env.EntryValue:
		cv, ok := ent.Value.(values.CValue)
		if !ok {
			return ExprResult{}, fmt.Errorf("lower: identifier %q bound to a non-lowered value", n.Name)
		}
		return ExprResult{Values: values.MultiCValue{cv}}, nil
	case env.EntryAlias:
		prevEnv := ctx.Env
		ctx.Env = ent.AliasEnv
		defer func() { ctx.Env = prevEnv }()
		return lo.LowerRef(ctx, ent.AliasExpr)
	case env.EntryPrimOp:
		return ExprResult{}, fmt.Errorf("lower: primitive operation %q has no first-class value representation (a PrimOpCode is a fixed-arity dispatch code, not a CodePointer); call it instead of referencing it bare", n.Name)
	default:
		return ExprResult{}, fmt.Errorf("lower: identifier %q does not resolve to a runtime value", n.Name)
	}
}

func (lo *Lowerer) lowerIntLiteral(ctx *Context, n *hir.IntLiteral) (ExprResult, error) {
	holder, t, err := lo.Literals.DecodeInt(n.Text, n.Suffix, nil)
	if err != nil {
		return ExprResult{}, err
	}
	return lo.materializeConst(ctx, t, func() values.Handle { return ctx.Backend.ConstInt(t, holder.Bytes) }), nil
}

func (lo *Lowerer) lowerFloatLiteral(ctx *Context, n *hir.FloatLiteral) (ExprResult, error) {
	holder, t, err := lo.Literals.DecodeFloat(n.Text, n.Suffix)
	if err != nil {
		return ExprResult{}, err
	}
	return lo.materializeConst(ctx, t, func() values.Handle { return ctx.Backend.ConstFloat(t, holder.Bytes) }), nil
}

func (lo *Lowerer) lowerCharLiteral(ctx *Context, n *hir.CharLiteral) (ExprResult, error) {
	t := lo.Interner.InternInteger(8, false)
	return lo.materializeConst(ctx, t, func() values.Handle {
		return ctx.Backend.ConstInt(t, []byte{byte(n.Rune)})
	}), nil
}

// materializeConst allocates a fresh (reused-if-possible) slot for t,
// stores build()'s SSA constant into it, and returns the slot as an owned
// rvalue CValue — the caller (a Binding or a nested expression) decides
// whether to PushLocal it.
func (lo *Lowerer) materializeConst(ctx *Context, t *types.Type, build func() values.Handle) ExprResult {
	slot := ctx.AllocSlot(t.String(), func() values.Handle { return ctx.Backend.Alloca(t) })
	ctx.Backend.Store(build(), slot)
	return ExprResult{Values: values.MultiCValue{{Type: t, Backend: slot, ForwardedRValue: true}}}
}

// lowerTuplePositional implements the arity>1 concatenation shape of
// tupleLiteral (spec.md §4.2's analyzeTuple): each element contributes
// exactly one position to the result, positionally. Aggregate (arity==1,
// a single Tuple-typed value) construction is a separate, not-yet-wired
// shape — it needs a backend aggregate-store sequence this driver doesn't
// build yet.
func (lo *Lowerer) lowerTuplePositional(ctx *Context, n *hir.Tuple) (ExprResult, error) {
	out := make(values.MultiCValue, 0, len(n.Elems))
	for _, el := range n.Elems {
		result, err := lo.LowerRef(ctx, el)
		if err != nil {
			return ExprResult{}, err
		}
		out = append(out, result.Values...)
	}
	return ExprResult{Values: out}, nil
}

// lowerStringLiteral materializes n's bytes (plus a trailing NUL, matching
// the original implementation's C-string convention) into a fresh backend
// array slot and hands back its address as a Pointer(UInt8) rvalue, the
// type analyzeStringLiteral assigns. Backend has no constant-initialized-
// global mechanism (DeclareGlobal takes no initializer bytes), so the
// array is filled byte by byte with ConstInt+GEP+Store instead of being
// interned as a module-level constant.
func (lo *Lowerer) lowerStringLiteral(ctx *Context, n *hir.StringLiteral) (ExprResult, error) {
	byteType := lo.Interner.InternInteger(8, false)
	indexType := lo.Interner.InternInteger(32, true)
	arrType := lo.Interner.InternArray(byteType, int64(len(n.Value)+1))
	slot := ctx.Backend.Alloca(arrType)

	store := func(pos int64, b byte) {
		idx := ctx.Backend.ConstInt(indexType, encodeTag(pos))
		ptr := ctx.Backend.GEP(byteType, slot, idx)
		ctx.Backend.Store(ctx.Backend.ConstInt(byteType, []byte{b}), ptr)
	}
	for i, b := range n.Value {
		store(int64(i), b)
	}
	store(int64(len(n.Value)), 0)

	ptrType := lo.Interner.InternPointer(byteType)
	return lo.materializeConst(ctx, ptrType, func() values.Handle { return slot }), nil
}

// lowerIndex implements the runtime-indexing shape of analyzeIndex: the
// type/record/variant static-instantiation shape (Base a type identifier)
// is resolved entirely during analysis against the Interner and never
// reaches lowering as an unresolved Index node.
func (lo *Lowerer) lowerIndex(ctx *Context, n *hir.Index) (ExprResult, error) {
	if len(n.Args) != 1 {
		return ExprResult{}, fmt.Errorf("lower: runtime index expects exactly one argument, got %d", len(n.Args))
	}
	base, err := lo.LowerRef(ctx, n.Base)
	if err != nil {
		return ExprResult{}, err
	}
	if len(base.Values) != 1 {
		return ExprResult{}, fmt.Errorf("lower: index base must be a single value")
	}
	baseCV := base.Values[0]
	if baseCV.Type == nil {
		return ExprResult{}, fmt.Errorf("lower: index base has no resolved type")
	}

	idxResult, err := lo.LowerRef(ctx, n.Args[0])
	if err != nil {
		return ExprResult{}, err
	}
	if len(idxResult.Values) != 1 {
		return ExprResult{}, fmt.Errorf("lower: index argument must be a single value")
	}
	idxCV := idxResult.Values[0]
	idx := ctx.Backend.Load(idxCV.Type, idxCV.Backend)

	var elem *types.Type
	var basePtr values.Handle
	switch baseCV.Type.Kind() {
	case types.KindArray, types.KindVec:
		elem = baseCV.Type.Elem()
		basePtr = baseCV.Backend
	case types.KindPointer:
		elem = baseCV.Type.Pointee()
		basePtr = ctx.Backend.Load(baseCV.Type, baseCV.Backend)
	default:
		return ExprResult{}, fmt.Errorf("lower: cannot index a value of type %v", baseCV.Type)
	}

	ptr := ctx.Backend.GEP(elem, basePtr, idx)
	return ExprResult{Values: values.MultiCValue{{Type: elem, Backend: ptr}}}, nil
}

// lowerStaticIndex mirrors lowerFieldRef's field lookup but resolves the
// field by either name (an Identifier selector) or position (an IntLiteral
// selector), per analyzeStaticIndex.
func (lo *Lowerer) lowerStaticIndex(ctx *Context, n *hir.StaticIndex) (ExprResult, error) {
	base, err := lo.LowerRef(ctx, n.Base)
	if err != nil {
		return ExprResult{}, err
	}
	if len(base.Values) != 1 {
		return ExprResult{}, fmt.Errorf("lower: static index base must be a single value")
	}
	baseCV := base.Values[0]
	if baseCV.Type == nil || baseCV.Type.Kind() != types.KindRecord {
		return ExprResult{}, fmt.Errorf("lower: static index on a non-record type %v", baseCV.Type)
	}
	fields, err := lo.Interner.Fields(baseCV.Type)
	if err != nil {
		return ExprResult{}, err
	}

	idx := -1
	switch sel := n.Field.(type) {
	case *hir.Identifier:
		for i, f := range fields {
			if f.Name == sel.Name {
				idx = i
				break
			}
		}
	case *hir.IntLiteral:
		holder, _, derr := lo.Literals.DecodeInt(sel.Text, sel.Suffix, nil)
		if derr != nil {
			return ExprResult{}, derr
		}
		idx = int(decodeLittleEndianInt(holder.Bytes))
	default:
		return ExprResult{}, fmt.Errorf("lower: static index selector must be an identifier or integer literal, got %T", n.Field)
	}
	if idx < 0 || idx >= len(fields) {
		return ExprResult{}, fmt.Errorf("lower: static index %v out of range for record with %d fields", n.Field, len(fields))
	}

	f := fields[idx]
	indexType := lo.Interner.InternInteger(32, true)
	indexHandle := ctx.Backend.ConstInt(indexType, encodeTag(int64(idx)))
	ptr := ctx.Backend.GEP(f.Type, baseCV.Backend, indexHandle)
	return ExprResult{Values: values.MultiCValue{{Type: f.Type, Backend: ptr}}}, nil
}

func decodeLittleEndianInt(b []byte) int64 {
	var v int64
	for i, by := range b {
		v |= int64(by) << (8 * uint(i))
	}
	return v
}

// lowerEval mirrors analyzeEval/staticObjectAsValue exactly: only
// StaticKindInt and StaticKindBool have a runtime representation, decoded
// into the same Int32/Bool types the analyzer assigned them.
func (lo *Lowerer) lowerEval(ctx *Context, n *hir.Eval) (ExprResult, error) {
	if lo.Eval == nil {
		return ExprResult{}, fmt.Errorf("lower: eval expression needs a static evaluator, none wired")
	}
	statics, err := lo.Eval.EvaluateMultiStatic(n.Operand, ctx.Env)
	if err != nil {
		return ExprResult{}, err
	}
	out := make(values.MultiCValue, len(statics))
	for i, s := range statics {
		switch s.Kind {
		case types.StaticKindInt:
			t := lo.Interner.InternInteger(32, true)
			v := s.Int
			r := lo.materializeConst(ctx, t, func() values.Handle { return ctx.Backend.ConstInt(t, encodeTag(v)) })
			out[i] = r.Values[0]
		case types.StaticKindBool:
			t := lo.Interner.InternBool()
			b := byte(0)
			if s.Bool {
				b = 1
			}
			r := lo.materializeConst(ctx, t, func() values.Handle { return ctx.Backend.ConstInt(t, []byte{b}) })
			out[i] = r.Values[0]
		default:
			return ExprResult{}, fmt.Errorf("lower: eval result has no runtime value (static kind %v)", s.Kind)
		}
	}
	return ExprResult{Values: out}, nil
}

func (lo *Lowerer) lowerFieldRef(ctx *Context, n *hir.FieldRef) (ExprResult, error) {
	base, err := lo.LowerRef(ctx, n.Base)
	if err != nil {
		return ExprResult{}, err
	}
	if len(base.Values) != 1 {
		return ExprResult{}, fmt.Errorf("lower: field reference base must be a single value")
	}
	baseCV := base.Values[0]
	if baseCV.Type == nil || baseCV.Type.Kind() != types.KindRecord {
		return ExprResult{}, fmt.Errorf("lower: field reference on a non-record type %v", baseCV.Type)
	}
	fields, err := lo.Interner.Fields(baseCV.Type)
	if err != nil {
		return ExprResult{}, err
	}
	for i, f := range fields {
		if f.Name != n.Name {
			continue
		}
		indexType := lo.Interner.InternInteger(32, true)
		idx := ctx.Backend.ConstInt(indexType, encodeTag(int64(i)))
		ptr := ctx.Backend.GEP(f.Type, baseCV.Backend, idx)
		return ExprResult{Values: values.MultiCValue{{Type: f.Type, Backend: ptr}}}, nil
	}
	return ExprResult{}, fmt.Errorf("lower: no such field %q", n.Name)
}

// lowerThrowValue implements the expression-level `throw` (spec.md §4.4's
// lowerThrow note): lower the operand (if any) for its side effect of
// materializing the exception payload, then drive the same unwind-and-
// branch sequence EmitExceptionCheck's raise arm does, finishing with an
// Unreachable terminator since a throw expression never produces a value
// on any reachable path.
func (lo *Lowerer) lowerThrowValue(ctx *Context, n *hir.ThrowValue) error {
	var payload values.Handle
	if n.Operand != nil {
		result, err := lo.LowerRef(ctx, n.Operand)
		if err != nil {
			return err
		}
		if len(result.Values) != 1 {
			return fmt.Errorf("lower: throw operand must be a single value")
		}
		payload = result.Values[0].Backend
	}
	ctx.ExceptionValue = payload
	target := ctx.nearestExceptionTarget()
	if err := ctx.UnwindTo(target.Marker, true); err != nil {
		return err
	}
	ctx.Backend.Br(target.Block)
	ctx.Backend.Unreachable()
	return nil
}

// lowerCall resolves the callable (or, for a bare primitive-operation
// reference, routes to lowerPrimOp or its checked-arithmetic delegate),
// lowers the argument list once, then asks the Invoker for this call's
// InvokeEntry and dispatches on DetermineCallKind to the matching shape:
// Direct/LLVM-body share one emission path, C-ABI and force-inline each
// get their own, and Dispatch is scoped out (see the CallDispatch case's
// comment for why).
func (lo *Lowerer) lowerCall(ctx *Context, n *hir.Call) (ExprResult, error) {
	callableIdent, ok := n.Callable.(*hir.Identifier)
	if !ok {
		return ExprResult{}, fmt.Errorf("lower: call target must be a plain identifier (got %T)", n.Callable)
	}
	ent, err := ctx.Env.Require(callableIdent.Name)
	if err != nil {
		return ExprResult{}, err
	}
	if ent.Kind == env.EntryPrimOp {
		code := primops.PrimOpCode(ent.PrimOp)
		delegateName, delegates := code.DelegatesTo()
		if !delegates {
			return lo.lowerPrimOp(ctx, code, n.Args)
		}
		// Checked-arithmetic primitives route to a named overloadable
		// procedure instead of being computed directly (primops.PrimOpCode.
		// DelegatesTo's doc comment) — resolve it and fall through to the
		// ordinary callable path below, using the same call-site arguments.
		ent, err = ctx.Env.Require(delegateName)
		if err != nil {
			return ExprResult{}, fmt.Errorf("lower: resolving checked-arithmetic delegate %q for %q: %w", delegateName, callableIdent.Name, err)
		}
	}
	if ent.Kind != env.EntryCallable {
		return ExprResult{}, fmt.Errorf("lower: %q does not resolve to a callable", callableIdent.Name)
	}

	args := make([]values.Handle, len(n.Args))
	argsKey := make([]*types.Type, len(n.Args))
	tempKey := make([]values.Tempness, len(n.Args))
	anyDispatched := false
	for i, a := range n.Args {
		result, err := lo.LowerRef(ctx, a)
		if err != nil {
			return ExprResult{}, err
		}
		if len(result.Values) != 1 {
			return ExprResult{}, fmt.Errorf("lower: call argument %d must be a single value", i)
		}
		cv := result.Values[0]
		args[i] = cv.Backend
		argsKey[i] = cv.Type
		if cv.ForwardedRValue {
			tempKey[i] = values.Rvalue
		} else {
			tempKey[i] = values.Lvalue
		}
		if i < len(n.Dispatch) && n.Dispatch[i] {
			anyDispatched = true
		}
	}

	if lo.Invoke == nil {
		return ExprResult{}, fmt.Errorf("lower: no invoker wired for call to %q", callableIdent.Name)
	}
	entry, err := lo.Invoke.Invoke(ent.Callable, argsKey, tempKey)
	if err != nil {
		return ExprResult{}, err
	}

	kind := DetermineCallKind(entry, anyDispatched)

	switch kind {
	case CallDirect, CallLLVMBody:
		// An LLVM-body entry is declared with the same sentinel-ABI
		// signature as an ordinary entry (internal/compilation's lowerEntry
		// computes paramTypes once, before branching on LLVMBody/
		// ExternalName) and ParseFunctionBody installs its definition
		// against that same signature, so the call site needs no special
		// handling beyond the Direct shape.
		return lo.emitDirectCall(ctx, callableIdent.Name, entry, args)

	case CallCABI:
		return lo.emitCABICall(ctx, callableIdent.Name, entry, args, argsKey)

	case CallForceInline:
		return lo.emitForceInlineCall(ctx, entry, args)

	case CallDispatch:
		// Dispatch narrows the argument to its chosen member's payload,
		// which sits after Variant's 32-bit tag at an alignment-dependent
		// offset (internal/types/layout.go's Offsets[1]) — addressing it
		// needs a byte-offset GEP that backend.Backend's single-index,
		// element-typed GEP cannot express.
		return ExprResult{}, fmt.Errorf("lower: dispatch call lowering for %q needs a byte-offset payload GEP that backend.Backend does not expose", callableIdent.Name)

	default:
		return ExprResult{}, fmt.Errorf("lower: unhandled call-lowering kind %v for %q", kind, callableIdent.Name)
	}
}

// emitDirectCall implements the common Direct/LLVM-body call shape:
// allocate one output slot per return position, issue the call, and run
// the sentinel exception protocol.
func (lo *Lowerer) emitDirectCall(ctx *Context, name string, entry *specialize.InvokeEntry, args []values.Handle) (ExprResult, error) {
	outs := make([]values.Handle, len(entry.ReturnTypesList))
	for i, rt := range entry.ReturnTypesList {
		outs[i] = ctx.AllocSlot(rt.String(), func() values.Handle { return ctx.Backend.Alloca(rt) })
	}

	fn := values.Handle(entry.LoweredFn)
	if fn == nil {
		return ExprResult{}, fmt.Errorf("lower: %q has not been lowered to a backend function yet", name)
	}
	sentinelType := lo.Interner.InternPointer(lo.Interner.InternInteger(8, false))
	if _, err := ctx.LowerDirectCall(fn, args, outs, sentinelType); err != nil {
		return ExprResult{}, err
	}

	return ExprResult{Values: resultsFromOuts(entry, outs)}, nil
}

// emitCABICall implements the C-ABI call shape: no sentinel, no output
// pointers — the external target computes the real backend parameter
// list and the return (if any) comes back as an ordinary SSA value that
// gets materialized into a slot so it fits the CValue "always a pointer"
// contract the rest of lowering relies on.
func (lo *Lowerer) emitCABICall(ctx *Context, name string, entry *specialize.InvokeEntry, args []values.Handle, argsKey []*types.Type) (ExprResult, error) {
	ext, ok := ctx.Backend.(backend.ExternalTarget)
	if !ok {
		return ExprResult{}, fmt.Errorf("lower: backend does not implement ExternalTarget, cannot call external %q", name)
	}
	if len(entry.ReturnTypesList) > 1 {
		return ExprResult{}, fmt.Errorf("lower: external call %q has %d return positions; only 0 or 1 is supported", name, len(entry.ReturnTypesList))
	}
	fn := values.Handle(entry.LoweredFn)
	if fn == nil {
		return ExprResult{}, fmt.Errorf("lower: %q has not been lowered to a backend function yet", name)
	}

	result, hiddenReturn := ctx.LowerCABICall(ext, entry.ExternalConv, fn, argsKey, entry.ReturnTypesList, args)
	if hiddenReturn {
		return ExprResult{}, fmt.Errorf("lower: external call %q returns via a hidden pointer argument, which this call site does not yet thread", name)
	}
	if len(entry.ReturnTypesList) == 0 {
		return ExprResult{}, nil
	}
	rt := entry.ReturnTypesList[0]
	slot := ctx.AllocSlot(rt.String(), func() values.Handle { return ctx.Backend.Alloca(rt) })
	ctx.Backend.Store(result, slot)
	return ExprResult{Values: values.MultiCValue{{Type: rt, Backend: slot, ForwardedRValue: true}}}, nil
}

// emitForceInlineCall implements the force-inline call shape: the entry's
// own body is lowered in place, under its own captured environment, with
// a local return target whose ReturnSlots are this call's own output
// pointers — a `return` inside the inlined body fills them and branches
// to a local merge block instead of the enclosing function's return block
// (see JumpTarget.ReturnSlots's doc comment).
func (lo *Lowerer) emitForceInlineCall(ctx *Context, entry *specialize.InvokeEntry, args []values.Handle) (ExprResult, error) {
	if lo.Stmt == nil {
		return ExprResult{}, fmt.Errorf("lower: force-inline call to %q requires a statement lowerer, none wired", entry.Callable.Name)
	}
	if entry.VarArgName != "" {
		return ExprResult{}, fmt.Errorf("lower: force-inline call to %q has a variadic trailing parameter, which inline argument binding does not yet handle", entry.Callable.Name)
	}

	outs := make([]values.Handle, len(entry.ReturnTypesList))
	for i, rt := range entry.ReturnTypesList {
		outs[i] = ctx.AllocSlot(rt.String(), func() values.Handle { return ctx.Backend.Alloca(rt) })
	}

	prevEnv := ctx.Env
	ctx.Env = env.NewEnclosed(entry.Env)
	for i, argName := range entry.FixedArgNames {
		ctx.Bind(argName, values.CValue{Type: entry.ArgsKey[i], Backend: args[i]})
	}

	returnBlock := ctx.Backend.NewBlock(ctx.Fn, "inline.return")
	ctx.PushReturnTarget(returnBlock, outs)
	ctx.InlineDepth++

	terminated, err := lo.Stmt.LowerBlock(ctx, &hir.Block{Stmts: entry.Body})

	ctx.InlineDepth--
	ctx.PopReturnTarget()
	ctx.Env = prevEnv

	if err != nil {
		return ExprResult{}, err
	}
	if !terminated {
		ctx.Backend.Br(returnBlock)
	}
	ctx.Backend.SetInsertPoint(returnBlock)

	return ExprResult{Values: resultsFromOuts(entry, outs)}, nil
}

func resultsFromOuts(entry *specialize.InvokeEntry, outs []values.Handle) values.MultiCValue {
	results := make(values.MultiCValue, len(outs))
	for i, out := range outs {
		results[i] = values.CValue{
			Type:            entry.ReturnTypesList[i],
			Backend:         out,
			ForwardedRValue: !(i < len(entry.ReturnIsRefFlags) && entry.ReturnIsRefFlags[i]),
		}
	}
	return results
}
